package completion

import "fmt"

// Status is the completion state of a (student, question) or
// (student, assignment) pair. StatusCompleted is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// ParseStatus converts a wire string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// CanTransition reports whether a record in state s may move to target.
// Any non-terminal state may move to any valid state, including back to
// pending; a terminal record accepts nothing, not even a resubmission of
// completed.
func (s Status) CanTransition(target Status) bool {
	return !s.Terminal() && target.Valid()
}
