package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Postgres is a PostgreSQL-backed Catalog.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL-backed catalog.
func NewPostgres(pool *pgxpool.Pool) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) StudentExists(ctx context.Context, studentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM student WHERE id = $1::uuid)`,
		studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}

func (p *Postgres) GetStudent(ctx context.Context, studentID string) (Student, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var s Student
	var class *string
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, level, COALESCE(class, '') FROM student WHERE id = $1::uuid`,
		studentID,
	).Scan(&s.ID, &s.Level, &class)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, fmt.Errorf("get student: %w", err)
	}
	if class != nil {
		s.Class = *class
	}
	return s, nil
}

func (p *Postgres) GetQuestion(ctx context.Context, questionID string) (Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var q Question
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, qna_type, created_at FROM qna WHERE id = $1::uuid`,
		questionID,
	).Scan(&q.ID, &q.Type, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (p *Postgres) GetLecture(ctx context.Context, lectureID string) (Lecture, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var l Lecture
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, title, description, url FROM lecture WHERE id = $1::uuid`,
		lectureID,
	).Scan(&l.ID, &l.Title, &l.Description, &l.URL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lecture{}, ErrNotFound
		}
		return Lecture{}, fmt.Errorf("get lecture: %w", err)
	}
	return l, nil
}

func (p *Postgres) GetAssignment(ctx context.Context, assignmentID string) (Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		assignmentSelect+` WHERE id = $1::uuid`,
		assignmentID,
	)
	if err != nil {
		return Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	defer rows.Close()

	out, err := scanAssignments(rows)
	if err != nil {
		return Assignment{}, err
	}
	if len(out) == 0 {
		return Assignment{}, ErrNotFound
	}
	return out[0], nil
}

func (p *Postgres) AssignmentsByLecture(ctx context.Context, lectureID string) ([]Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		assignmentSelect+` WHERE lecture_id = $1::uuid ORDER BY assignment_level ASC, id ASC`,
		lectureID,
	)
	if err != nil {
		return nil, fmt.Errorf("query lecture assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (p *Postgres) AssignmentsByQuestion(ctx context.Context, questionID string) ([]Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		assignmentSelect+` WHERE qna_id = $1::uuid ORDER BY id ASC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query question assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (p *Postgres) LecturesWithAssignments(ctx context.Context) ([]Lecture, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT DISTINCT l.id::text, l.title, l.description, l.url
		 FROM lecture l
		 JOIN assignment a ON a.lecture_id = l.id
		 ORDER BY l.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query lectures: %w", err)
	}
	defer rows.Close()

	var out []Lecture
	for rows.Next() {
		var l Lecture
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.URL); err != nil {
			return nil, fmt.Errorf("scan lecture: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lectures: %w", err)
	}
	return out, nil
}

const assignmentSelect = `SELECT id::text, lecture_id::text, qna_id::text, difficulty_level, qna_type, assignment_level FROM assignment`

func scanAssignments(rows pgx.Rows) ([]Assignment, error) {
	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.LectureID, &a.QuestionID, &a.Difficulty, &a.Type, &a.Level); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}
