package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. Atomicity of the
// check-then-act sequences rests on the (student, entity) uniqueness
// constraints plus conditional upserts, so two concurrent requests can never
// both transition a terminal record.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed completion store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetQuestionCompletion(ctx context.Context, studentID, questionID string) (QuestionCompletion, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var rec QuestionCompletion
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, student_id::text, qna_id::text, status, created_at, updated_at
		 FROM qna_completed
		 WHERE student_id = $1::uuid AND qna_id = $2::uuid
		 LIMIT 1`,
		studentID, questionID,
	).Scan(&rec.ID, &rec.StudentID, &rec.QuestionID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuestionCompletion{}, false, nil
		}
		return QuestionCompletion{}, false, fmt.Errorf("get question completion: %w", err)
	}
	return rec, true, nil
}

func (s *PostgresStore) SetQuestionStatus(ctx context.Context, studentID, questionID string, status Status) (QuestionCompletion, error) {
	if !status.Valid() {
		return QuestionCompletion{}, fmt.Errorf("invalid status %q", status)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// Single conditional upsert: the WHERE clause on the conflict arm makes
	// a terminal record yield zero rows instead of being overwritten.
	var rec QuestionCompletion
	err := s.pool.QueryRow(ctx,
		`INSERT INTO qna_completed (student_id, qna_id, status)
		 VALUES ($1::uuid, $2::uuid, $3)
		 ON CONFLICT (student_id, qna_id) DO UPDATE
		 SET status = EXCLUDED.status, updated_at = now()
		 WHERE qna_completed.status <> 'completed'
		 RETURNING id::text, student_id::text, qna_id::text, status, created_at, updated_at`,
		studentID, questionID, status,
	).Scan(&rec.ID, &rec.StudentID, &rec.QuestionID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuestionCompletion{}, ErrAlreadyCompleted
		}
		return QuestionCompletion{}, fmt.Errorf("set question status: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) QuestionCompletionsByStudent(ctx context.Context, studentID string) ([]QuestionCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, student_id::text, qna_id::text, status, created_at, updated_at
		 FROM qna_completed
		 WHERE student_id = $1::uuid
		 ORDER BY updated_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query question completions: %w", err)
	}
	defer rows.Close()

	var out []QuestionCompletion
	for rows.Next() {
		var rec QuestionCompletion
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.QuestionID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan question completion: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question completions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountCompletedQuestions(ctx context.Context, studentID string, questionIDs []string) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT qna_id)
		 FROM qna_completed
		 WHERE student_id = $1::uuid
		   AND qna_id = ANY($2::uuid[])
		   AND status = 'completed'`,
		studentID, questionIDs,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed questions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetAssignmentCompletion(ctx context.Context, studentID, assignmentID string) (AssignmentCompletion, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var rec AssignmentCompletion
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, student_id::text, assignment_id::text, status, created_at, updated_at
		 FROM assignment_completed
		 WHERE student_id = $1::uuid AND assignment_id = $2::uuid
		 LIMIT 1`,
		studentID, assignmentID,
	).Scan(&rec.ID, &rec.StudentID, &rec.AssignmentID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AssignmentCompletion{}, false, nil
		}
		return AssignmentCompletion{}, false, fmt.Errorf("get assignment completion: %w", err)
	}
	return rec, true, nil
}

func (s *PostgresStore) CompleteAssignment(ctx context.Context, studentID, assignmentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// Never downgrade from completed; an already-completed row yields zero
	// rows, which is the idempotent no-op.
	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO assignment_completed (student_id, assignment_id, status)
		 VALUES ($1::uuid, $2::uuid, 'completed')
		 ON CONFLICT (student_id, assignment_id) DO UPDATE
		 SET status = 'completed', updated_at = now()
		 WHERE assignment_completed.status <> 'completed'`,
		studentID, assignmentID,
	)
	if err != nil {
		return false, fmt.Errorf("complete assignment: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) AssignmentCompletionsByStudent(ctx context.Context, studentID string) ([]AssignmentCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, student_id::text, assignment_id::text, status, created_at, updated_at
		 FROM assignment_completed
		 WHERE student_id = $1::uuid
		 ORDER BY updated_at ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query assignment completions: %w", err)
	}
	defer rows.Close()

	return scanAssignmentCompletions(rows)
}

func (s *PostgresStore) CountCompletedAssignments(ctx context.Context, studentID string, assignmentIDs []string) (int, error) {
	if len(assignmentIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM assignment_completed
		 WHERE student_id = $1::uuid
		   AND assignment_id = ANY($2::uuid[])
		   AND status = 'completed'`,
		studentID, assignmentIDs,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed assignments: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AssignmentCompletionsFor(ctx context.Context, assignmentIDs []string) ([]AssignmentCompletion, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, student_id::text, assignment_id::text, status, created_at, updated_at
		 FROM assignment_completed
		 WHERE assignment_id = ANY($1::uuid[])
		 ORDER BY student_id ASC, assignment_id ASC`,
		assignmentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query assignment completions: %w", err)
	}
	defer rows.Close()

	return scanAssignmentCompletions(rows)
}

func scanAssignmentCompletions(rows pgx.Rows) ([]AssignmentCompletion, error) {
	var out []AssignmentCompletion
	for rows.Next() {
		var rec AssignmentCompletion
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.AssignmentID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment completion: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment completions: %w", err)
	}
	return out, nil
}
