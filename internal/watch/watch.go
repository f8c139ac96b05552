// Package watch tracks per-student lecture watch time.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/curiolearn/curio-backend/internal/catalog"
	"github.com/curiolearn/curio-backend/internal/completion"
)

// Record is one (student, lecture) watch row. WatchedTime is seconds into
// the lecture video; each update overwrites the previous value.
type Record struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	LectureID   string    `json:"lectureId"`
	WatchedTime int       `json:"watchedTime"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Progress is a watch record joined with its lecture's metadata. A pair
// that was never watched reports WatchedTime 0 with a nil Record.
type Progress struct {
	Record       *Record `json:"record,omitempty"`
	WatchedTime  int     `json:"watchedTime"`
	LectureTitle string  `json:"lectureTitle,omitempty"`
	LectureURL   string  `json:"lectureUrl,omitempty"`
}

// HistoryEntry is one row of a student's watch history.
type HistoryEntry struct {
	ID                 string    `json:"id"`
	LectureID          string    `json:"lectureId"`
	WatchedTime        int       `json:"watchedTime"`
	LastUpdated        time.Time `json:"lastUpdated"`
	LectureTitle       string    `json:"lectureTitle"`
	LectureDescription string    `json:"lectureDescription"`
	LectureURL         string    `json:"lectureUrl"`
}

// History is a student's full watch history, oldest update first.
type History struct {
	StudentID   string         `json:"studentId"`
	TotalVideos int            `json:"totalVideos"`
	History     []HistoryEntry `json:"history"`
}

// TrackerConfig holds dependencies for the watch tracker.
type TrackerConfig struct {
	Catalog catalog.Catalog
	Store   Store
}

// Tracker validates watch updates against the catalog and owns all reads
// and writes of watch records.
type Tracker struct {
	catalog catalog.Catalog
	store   Store
}

// NewTracker creates a watch tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{catalog: cfg.Catalog, store: store}
}

// UpdateProgress upserts the watch record for (student, lecture). The new
// watched time replaces the stored one, even when it is smaller; seeking
// backwards is a legitimate position change.
func (t *Tracker) UpdateProgress(ctx context.Context, studentID, lectureID string, watchedTime int) (Record, error) {
	if watchedTime < 0 {
		return Record{}, errors.New("watched time must not be negative")
	}
	if err := t.checkPair(ctx, studentID, lectureID); err != nil {
		return Record{}, err
	}
	return t.store.UpsertWatch(ctx, studentID, lectureID, watchedTime)
}

// GetProgress reads the watch record for one (student, lecture) pair,
// joined with the lecture's title and URL. Missing records report zero.
func (t *Tracker) GetProgress(ctx context.Context, studentID, lectureID string) (Progress, error) {
	rec, found, err := t.store.GetWatch(ctx, studentID, lectureID)
	if err != nil {
		return Progress{}, err
	}
	if !found {
		return Progress{WatchedTime: 0}, nil
	}

	p := Progress{Record: &rec, WatchedTime: rec.WatchedTime}
	if lec, err := t.catalog.GetLecture(ctx, lectureID); err == nil {
		p.LectureTitle = lec.Title
		p.LectureURL = lec.URL
	}
	return p, nil
}

// StudentHistory lists every lecture the student has watched, joined with
// lecture metadata, ordered by last update.
func (t *Tracker) StudentHistory(ctx context.Context, studentID string) (History, error) {
	if ok, err := t.catalog.StudentExists(ctx, studentID); err != nil {
		return History{}, err
	} else if !ok {
		return History{}, &completion.NotFoundError{Entity: "student", ID: studentID}
	}

	recs, err := t.store.WatchesByStudent(ctx, studentID)
	if err != nil {
		return History{}, err
	}

	history := History{StudentID: studentID, History: []HistoryEntry{}}
	for _, rec := range recs {
		entry := HistoryEntry{
			ID:          rec.ID,
			LectureID:   rec.LectureID,
			WatchedTime: rec.WatchedTime,
			LastUpdated: rec.UpdatedAt,
		}
		if lec, err := t.catalog.GetLecture(ctx, rec.LectureID); err == nil {
			entry.LectureTitle = lec.Title
			entry.LectureDescription = lec.Description
			entry.LectureURL = lec.URL
		}
		history.History = append(history.History, entry)
	}
	history.TotalVideos = len(history.History)
	return history, nil
}

// RecentlyWatched is StudentHistory truncated to the most recently updated
// records, newest first.
func (t *Tracker) RecentlyWatched(ctx context.Context, studentID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	history, err := t.StudentHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}

	entries := history.History
	// WatchesByStudent returns oldest update first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// DeleteProgress removes the watch record for (student, lecture).
func (t *Tracker) DeleteProgress(ctx context.Context, studentID, lectureID string) error {
	deleted, err := t.store.DeleteWatch(ctx, studentID, lectureID)
	if err != nil {
		return err
	}
	if !deleted {
		return &completion.NotFoundError{Entity: "watch progress", ID: studentID + "/" + lectureID}
	}
	return nil
}

func (t *Tracker) checkPair(ctx context.Context, studentID, lectureID string) error {
	ok, err := t.catalog.StudentExists(ctx, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return &completion.NotFoundError{Entity: "student", ID: studentID}
	}

	if _, err := t.catalog.GetLecture(ctx, lectureID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &completion.NotFoundError{Entity: "lecture", ID: lectureID}
		}
		return err
	}
	return nil
}
