package completion

import "time"

// QuestionCompletion is the per-(student, question) ledger record.
type QuestionCompletion struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	QuestionID string    `json:"qnaId"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AssignmentCompletion is the derived per-(student, assignment) record
// materialized by the cascade. Other flows may write it directly; the
// cascade never downgrades a completed record.
type AssignmentCompletion struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"studentId"`
	AssignmentID string    `json:"assignmentId"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StatusReport answers a ledger read for one (student, question) pair.
// Status is nil when the pair has never been attempted.
type StatusReport struct {
	Record      *QuestionCompletion `json:"record,omitempty"`
	Status      *Status             `json:"status"`
	IsCompleted bool                `json:"isCompleted"`
	CanSubmit   bool                `json:"canSubmit"`
}

// SetStatusResult is the outcome of a status-change call.
type SetStatusResult struct {
	Record       QuestionCompletion `json:"record"`
	CascadeFired bool               `json:"assignmentAutoCompleted"`
}

// StatusStats counts ledger rows per status.
type StatusStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
}

// Tally folds a status into the counts.
func (s *StatusStats) Tally(status Status) {
	s.Total++
	switch status {
	case StatusCompleted:
		s.Completed++
	case StatusInProgress:
		s.InProgress++
	case StatusPending:
		s.Pending++
	}
}
