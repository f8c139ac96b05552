package completion

import (
	"errors"
	"fmt"
)

// ErrAlreadyCompleted is returned for any status change attempted on a
// terminal question-completion record. It is an expected, user-reachable
// rejection, not a fault.
var ErrAlreadyCompleted = errors.New("question already completed")

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string // "student", "qna", "lecture", "assignment"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// CascadeInputError reports a lecture whose assignments reference questions
// that no longer resolve. The triggering ledger write is unaffected; the
// cascade is skipped for this lecture.
type CascadeInputError struct {
	LectureID string
	Missing   []string
}

func (e *CascadeInputError) Error() string {
	return fmt.Sprintf("lecture %s references missing questions %v", e.LectureID, e.Missing)
}
