package database

import (
	"context"
	"fmt"
)

// statements are applied in order and must each be idempotent.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS student (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		level INTEGER NOT NULL DEFAULT 1,
		role TEXT NOT NULL DEFAULT 'individual',
		class VARCHAR(50),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS qna (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		qna_type TEXT NOT NULL CHECK (qna_type IN ('mcq', 'coding', 'paragraph', 'blockly')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS lecture (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS assignment (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lecture_id UUID NOT NULL REFERENCES lecture(id) ON DELETE CASCADE,
		qna_id UUID NOT NULL REFERENCES qna(id) ON DELETE CASCADE,
		difficulty_level TEXT NOT NULL CHECK (difficulty_level IN ('easy', 'medium', 'hard')),
		qna_type TEXT NOT NULL CHECK (qna_type IN ('mcq', 'coding', 'paragraph', 'blockly')),
		assignment_level INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignment_lecture ON assignment(lecture_id)`,
	`CREATE INDEX IF NOT EXISTS idx_assignment_qna ON assignment(qna_id)`,
	`CREATE TABLE IF NOT EXISTS qna_completed (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		qna_id UUID NOT NULL REFERENCES qna(id) ON DELETE CASCADE,
		student_id UUID NOT NULL REFERENCES student(id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK (status IN ('pending', 'inProgress', 'completed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_qna_completed_student_qna UNIQUE (student_id, qna_id)
	)`,
	`CREATE TABLE IF NOT EXISTS assignment_completed (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		assignment_id UUID NOT NULL REFERENCES assignment(id) ON DELETE CASCADE,
		student_id UUID NOT NULL REFERENCES student(id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK (status IN ('pending', 'inProgress', 'completed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_assignment_completed_student_assignment UNIQUE (student_id, assignment_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lecture_watched (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		student_id UUID NOT NULL REFERENCES student(id) ON DELETE CASCADE,
		lecture_id UUID NOT NULL REFERENCES lecture(id) ON DELETE CASCADE,
		watched_time INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_lecture_watched_student_lecture UNIQUE (student_id, lecture_id)
	)`,
	`CREATE TABLE IF NOT EXISTS completion_event (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		student_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_completion_event_student ON completion_event(student_id, created_at)`,
}

// Migrate applies the completion schema. Safe to run on every startup.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration: %w", err)
		}
	}
	return nil
}
