// Package completion implements the completion ledger, the per-lecture
// cascade that derives assignment completion from question completion, and
// the read-side progress aggregates.
package completion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/curiolearn/curio-backend/internal/catalog"
)

// CacheInvalidator drops cached progress aggregates for a student after a
// ledger write. Implemented by the Aggregator.
type CacheInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string) error
}

// EngineConfig holds dependencies for the completion engine.
type EngineConfig struct {
	Catalog     catalog.Catalog
	Store       Store
	Events      EventLogger
	Broadcaster *Broadcaster
	Invalidator CacheInvalidator
}

// Engine owns all writes to the completion ledger and triggers the cascade.
type Engine struct {
	catalog     catalog.Catalog
	store       Store
	events      EventLogger
	broadcaster *Broadcaster
	invalidator CacheInvalidator
}

// NewEngine creates a completion engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		catalog:     cfg.Catalog,
		store:       store,
		events:      events,
		broadcaster: cfg.Broadcaster,
		invalidator: cfg.Invalidator,
	}
}

// SetStatus creates or updates the ledger record for (student, question) and,
// when the new status is completed, evaluates the cascade for every
// assignment referencing the question. A terminal record rejects every
// target status with ErrAlreadyCompleted. Cascade failures are logged and
// isolated; they never fail the call once the ledger write has succeeded.
func (e *Engine) SetStatus(ctx context.Context, studentID, questionID string, status Status) (SetStatusResult, error) {
	if !status.Valid() {
		return SetStatusResult{}, errors.New("invalid status")
	}

	if err := e.checkPair(ctx, studentID, questionID); err != nil {
		return SetStatusResult{}, err
	}

	rec, err := e.store.SetQuestionStatus(ctx, studentID, questionID, status)
	if err != nil {
		return SetStatusResult{}, err
	}

	result := SetStatusResult{Record: rec}

	if status == StatusCompleted {
		result.CascadeFired = e.runCascades(ctx, studentID, questionID)
		e.emit(Event{
			StudentID: studentID,
			EventType: EventQuestionCompleted,
			Data: map[string]any{
				"qnaId":                   questionID,
				"assignmentAutoCompleted": result.CascadeFired,
			},
		})
	} else {
		e.emit(Event{
			StudentID: studentID,
			EventType: EventStatusChanged,
			Data:      map[string]any{"qnaId": questionID, "status": string(status)},
		})
	}

	if e.invalidator != nil {
		if err := e.invalidator.InvalidateStudent(ctx, studentID); err != nil {
			slog.Warn("progress cache invalidation failed", "student_id", studentID, "error", err)
		}
	}

	return result, nil
}

// MarkInProgress is the restricted variant of SetStatus that only ever
// writes inProgress. It inherits the terminal-state rejection.
func (e *Engine) MarkInProgress(ctx context.Context, studentID, questionID string) (QuestionCompletion, error) {
	res, err := e.SetStatus(ctx, studentID, questionID, StatusInProgress)
	if err != nil {
		return QuestionCompletion{}, err
	}
	return res.Record, nil
}

// GetStatus reads the ledger for one (student, question) pair. A pair that
// has never been attempted reports canSubmit=true with a nil status.
func (e *Engine) GetStatus(ctx context.Context, studentID, questionID string) (StatusReport, error) {
	if err := e.checkPair(ctx, studentID, questionID); err != nil {
		return StatusReport{}, err
	}

	rec, found, err := e.store.GetQuestionCompletion(ctx, studentID, questionID)
	if err != nil {
		return StatusReport{}, err
	}
	if !found {
		return StatusReport{IsCompleted: false, CanSubmit: true}, nil
	}

	status := rec.Status
	return StatusReport{
		Record:      &rec,
		Status:      &status,
		IsCompleted: status == StatusCompleted,
		CanSubmit:   status != StatusCompleted,
	}, nil
}

// QuestionLogEntry is one ledger row joined with its question's type.
type QuestionLogEntry struct {
	QuestionCompletion
	QuestionType catalog.QuestionType `json:"qnaType"`
}

// QuestionLog is a student's full ledger, newest first, with per-status
// counts.
type QuestionLog struct {
	StudentID string             `json:"studentId"`
	Stats     StatusStats        `json:"stats"`
	Questions []QuestionLogEntry `json:"qnas"`
}

// CompletedQuestions lists every ledger row for the student with its
// question type and rolled-up per-status stats.
func (e *Engine) CompletedQuestions(ctx context.Context, studentID string) (QuestionLog, error) {
	if ok, err := e.catalog.StudentExists(ctx, studentID); err != nil {
		return QuestionLog{}, err
	} else if !ok {
		return QuestionLog{}, &NotFoundError{Entity: "student", ID: studentID}
	}

	recs, err := e.store.QuestionCompletionsByStudent(ctx, studentID)
	if err != nil {
		return QuestionLog{}, err
	}

	log := QuestionLog{StudentID: studentID, Questions: []QuestionLogEntry{}}
	for _, rec := range recs {
		entry := QuestionLogEntry{QuestionCompletion: rec}
		if q, err := e.catalog.GetQuestion(ctx, rec.QuestionID); err == nil {
			entry.QuestionType = q.Type
		}
		log.Questions = append(log.Questions, entry)
		log.Stats.Tally(rec.Status)
	}
	return log, nil
}

// runCascades evaluates the lecture of every assignment referencing the
// question. One evaluation per assignment, even when several share a
// lecture; the repeated upsert is idempotent.
func (e *Engine) runCascades(ctx context.Context, studentID, questionID string) bool {
	assignments, err := e.catalog.AssignmentsByQuestion(ctx, questionID)
	if err != nil {
		slog.Error("cascade lookup failed", "student_id", studentID, "qna_id", questionID, "error", err)
		return false
	}

	fired := false
	for _, a := range assignments {
		done, err := e.EvaluateLecture(ctx, studentID, a.LectureID)
		if err != nil {
			var cie *CascadeInputError
			if errors.As(err, &cie) {
				slog.Error("inconsistent cascade input, skipping lecture",
					"student_id", studentID,
					"lecture_id", cie.LectureID,
					"missing_qnas", cie.Missing,
				)
			} else {
				slog.Error("cascade evaluation failed",
					"student_id", studentID,
					"lecture_id", a.LectureID,
					"error", err,
				)
			}
			continue
		}
		if done {
			fired = true
			e.emit(Event{
				StudentID: studentID,
				EventType: EventLectureCompleted,
				Data:      map[string]any{"lectureId": a.LectureID},
			})
		}
	}
	return fired
}

func (e *Engine) checkPair(ctx context.Context, studentID, questionID string) error {
	ok, err := e.catalog.StudentExists(ctx, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Entity: "student", ID: studentID}
	}

	if _, err := e.catalog.GetQuestion(ctx, questionID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &NotFoundError{Entity: "qna", ID: questionID}
		}
		return err
	}
	return nil
}

func (e *Engine) emit(event Event) {
	if err := e.events.LogEvent(event); err != nil {
		slog.Warn("event logging failed", "event_type", event.EventType, "error", err)
	}
	if e.broadcaster != nil {
		e.broadcaster.Publish(event)
	}
}
