package completion

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists the completion ledger and the derived assignment-completion
// records. Implementations must make SetQuestionStatus and
// CompleteAssignment atomic: a concurrent writer must never observe a
// terminal record as writable.
type Store interface {
	// GetQuestionCompletion returns the ledger record for the pair, or
	// found=false when the pair has never been attempted.
	GetQuestionCompletion(ctx context.Context, studentID, questionID string) (QuestionCompletion, bool, error)

	// SetQuestionStatus creates or updates the ledger record in one atomic
	// step. A record whose current status is terminal rejects every target
	// with ErrAlreadyCompleted.
	SetQuestionStatus(ctx context.Context, studentID, questionID string, status Status) (QuestionCompletion, error)

	// QuestionCompletionsByStudent lists the student's ledger rows, newest
	// first.
	QuestionCompletionsByStudent(ctx context.Context, studentID string) ([]QuestionCompletion, error)

	// CountCompletedQuestions counts how many of questionIDs have a
	// completed ledger record for the student.
	CountCompletedQuestions(ctx context.Context, studentID string, questionIDs []string) (int, error)

	// GetAssignmentCompletion returns the derived record for the pair, or
	// found=false when none exists.
	GetAssignmentCompletion(ctx context.Context, studentID, assignmentID string) (AssignmentCompletion, bool, error)

	// CompleteAssignment upserts the derived record to completed.
	// A record that is already completed is left untouched and reports
	// changed=false.
	CompleteAssignment(ctx context.Context, studentID, assignmentID string) (changed bool, err error)

	// AssignmentCompletionsByStudent lists the student's derived records,
	// oldest first.
	AssignmentCompletionsByStudent(ctx context.Context, studentID string) ([]AssignmentCompletion, error)

	// CountCompletedAssignments counts how many of assignmentIDs have a
	// completed derived record for the student.
	CountCompletedAssignments(ctx context.Context, studentID string, assignmentIDs []string) (int, error)

	// AssignmentCompletionsFor lists all students' derived records over the
	// given assignments.
	AssignmentCompletionsFor(ctx context.Context, assignmentIDs []string) ([]AssignmentCompletion, error)
}

type pairKey struct {
	studentID string
	entityID  string
}

// MemoryStore is an in-memory Store for tests and single-node dev mode.
type MemoryStore struct {
	mu          sync.Mutex
	questions   map[pairKey]*QuestionCompletion
	assignments map[pairKey]*AssignmentCompletion
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions:   make(map[pairKey]*QuestionCompletion),
		assignments: make(map[pairKey]*AssignmentCompletion),
		now:         time.Now,
	}
}

func (s *MemoryStore) GetQuestionCompletion(_ context.Context, studentID, questionID string) (QuestionCompletion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.questions[pairKey{studentID, questionID}]
	if !ok {
		return QuestionCompletion{}, false, nil
	}
	return *rec, true, nil
}

func (s *MemoryStore) SetQuestionStatus(_ context.Context, studentID, questionID string, status Status) (QuestionCompletion, error) {
	if !status.Valid() {
		return QuestionCompletion{}, fmt.Errorf("invalid status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{studentID, questionID}
	now := s.now()

	if rec, ok := s.questions[key]; ok {
		if rec.Status.Terminal() {
			return QuestionCompletion{}, ErrAlreadyCompleted
		}
		rec.Status = status
		rec.UpdatedAt = now
		return *rec, nil
	}

	rec := &QuestionCompletion{
		ID:         generateID(),
		StudentID:  studentID,
		QuestionID: questionID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.questions[key] = rec
	return *rec, nil
}

func (s *MemoryStore) QuestionCompletionsByStudent(_ context.Context, studentID string) ([]QuestionCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []QuestionCompletion
	for key, rec := range s.questions {
		if key.studentID == studentID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].QuestionID < out[j].QuestionID
	})
	return out, nil
}

func (s *MemoryStore) CountCompletedQuestions(_ context.Context, studentID string, questionIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	seen := make(map[string]bool, len(questionIDs))
	for _, qid := range questionIDs {
		if seen[qid] {
			continue
		}
		seen[qid] = true
		if rec, ok := s.questions[pairKey{studentID, qid}]; ok && rec.Status == StatusCompleted {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) GetAssignmentCompletion(_ context.Context, studentID, assignmentID string) (AssignmentCompletion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.assignments[pairKey{studentID, assignmentID}]
	if !ok {
		return AssignmentCompletion{}, false, nil
	}
	return *rec, true, nil
}

func (s *MemoryStore) CompleteAssignment(_ context.Context, studentID, assignmentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{studentID, assignmentID}
	now := s.now()

	if rec, ok := s.assignments[key]; ok {
		if rec.Status == StatusCompleted {
			return false, nil
		}
		rec.Status = StatusCompleted
		rec.UpdatedAt = now
		return true, nil
	}

	s.assignments[key] = &AssignmentCompletion{
		ID:           generateID(),
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Status:       StatusCompleted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return true, nil
}

// SetAssignmentStatus writes an arbitrary status, standing in for the direct
// (out-of-core) writers of the assignment-completion table. Test helper.
func (s *MemoryStore) SetAssignmentStatus(studentID, assignmentID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{studentID, assignmentID}
	now := s.now()
	if rec, ok := s.assignments[key]; ok {
		rec.Status = status
		rec.UpdatedAt = now
		return
	}
	s.assignments[key] = &AssignmentCompletion{
		ID:           generateID(),
		StudentID:    studentID,
		AssignmentID: assignmentID,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *MemoryStore) AssignmentCompletionsByStudent(_ context.Context, studentID string) ([]AssignmentCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []AssignmentCompletion
	for key, rec := range s.assignments {
		if key.studentID == studentID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].AssignmentID < out[j].AssignmentID
	})
	return out, nil
}

func (s *MemoryStore) CountCompletedAssignments(_ context.Context, studentID string, assignmentIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, aid := range assignmentIDs {
		if rec, ok := s.assignments[pairKey{studentID, aid}]; ok && rec.Status == StatusCompleted {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) AssignmentCompletionsFor(_ context.Context, assignmentIDs []string) ([]AssignmentCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(assignmentIDs))
	for _, aid := range assignmentIDs {
		wanted[aid] = true
	}

	var out []AssignmentCompletion
	for _, rec := range s.assignments {
		if wanted[rec.AssignmentID] {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].AssignmentID < out[j].AssignmentID
	})
	return out, nil
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
