package watch

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists watch records, keyed (student, lecture).
type Store interface {
	// UpsertWatch creates or overwrites the record for the pair with the
	// given watched time.
	UpsertWatch(ctx context.Context, studentID, lectureID string, watchedTime int) (Record, error)

	// GetWatch returns the record for the pair, or found=false when the
	// pair has never been watched.
	GetWatch(ctx context.Context, studentID, lectureID string) (Record, bool, error)

	// WatchesByStudent lists the student's records, oldest update first.
	WatchesByStudent(ctx context.Context, studentID string) ([]Record, error)

	// DeleteWatch removes the record for the pair, reporting whether one
	// existed.
	DeleteWatch(ctx context.Context, studentID, lectureID string) (bool, error)
}

type pairKey struct {
	studentID string
	lectureID string
}

// MemoryStore is an in-memory Store for tests and single-node dev mode.
type MemoryStore struct {
	mu      sync.Mutex
	watches map[pairKey]*Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		watches: make(map[pairKey]*Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) UpsertWatch(_ context.Context, studentID, lectureID string, watchedTime int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{studentID, lectureID}
	now := s.now()

	if rec, ok := s.watches[key]; ok {
		rec.WatchedTime = watchedTime
		rec.UpdatedAt = now
		return *rec, nil
	}

	rec := &Record{
		ID:          generateID(),
		StudentID:   studentID,
		LectureID:   lectureID,
		WatchedTime: watchedTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.watches[key] = rec
	return *rec, nil
}

func (s *MemoryStore) GetWatch(_ context.Context, studentID, lectureID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.watches[pairKey{studentID, lectureID}]
	if !ok {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

func (s *MemoryStore) WatchesByStudent(_ context.Context, studentID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for key, rec := range s.watches {
		if key.studentID == studentID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].LectureID < out[j].LectureID
	})
	return out, nil
}

func (s *MemoryStore) DeleteWatch(_ context.Context, studentID, lectureID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{studentID, lectureID}
	if _, ok := s.watches[key]; !ok {
		return false, nil
	}
	delete(s.watches, key)
	return true, nil
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
