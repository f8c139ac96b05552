package completion

import (
	"context"
	"errors"

	"github.com/curiolearn/curio-backend/internal/catalog"
)

// EvaluateLecture recomputes, from current ledger state, whether the student
// has completed every distinct question reachable through the lecture's
// assignments, and if so upserts every assignment-completion record to
// completed. The verdict is always recomputed from source records rather
// than a running counter, so assignments added or removed after earlier
// completions cannot cause drift. Idempotent; safe to run concurrently for
// the same (student, lecture).
func (e *Engine) EvaluateLecture(ctx context.Context, studentID, lectureID string) (bool, error) {
	assignments, err := e.catalog.AssignmentsByLecture(ctx, lectureID)
	if err != nil {
		return false, err
	}
	if len(assignments) == 0 {
		return false, nil
	}

	questionIDs := distinctQuestionIDs(assignments)

	var missing []string
	for _, qid := range questionIDs {
		if _, err := e.catalog.GetQuestion(ctx, qid); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				missing = append(missing, qid)
				continue
			}
			return false, err
		}
	}
	if len(missing) > 0 {
		return false, &CascadeInputError{LectureID: lectureID, Missing: missing}
	}

	completed, err := e.store.CountCompletedQuestions(ctx, studentID, questionIDs)
	if err != nil {
		return false, err
	}
	if completed != len(questionIDs) {
		return false, nil
	}

	// Fully answered: materialize completion for every assignment in the
	// lecture. A failure part-way leaves a self-healing partial state; the
	// next qualifying trigger re-evaluates and finishes the job.
	for _, a := range assignments {
		if _, err := e.store.CompleteAssignment(ctx, studentID, a.ID); err != nil {
			return false, err
		}
	}
	return true, nil
}

func distinctQuestionIDs(assignments []catalog.Assignment) []string {
	seen := make(map[string]bool, len(assignments))
	var out []string
	for _, a := range assignments {
		if !seen[a.QuestionID] {
			seen[a.QuestionID] = true
			out = append(out, a.QuestionID)
		}
	}
	return out
}
