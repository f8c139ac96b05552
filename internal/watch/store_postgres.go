package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. The (student, lecture)
// uniqueness constraint makes UpsertWatch a single-statement upsert.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed watch store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) UpsertWatch(ctx context.Context, studentID, lectureID string, watchedTime int) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var rec Record
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lecture_watched (student_id, lecture_id, watched_time)
		 VALUES ($1::uuid, $2::uuid, $3)
		 ON CONFLICT (student_id, lecture_id) DO UPDATE
		 SET watched_time = EXCLUDED.watched_time, updated_at = now()
		 RETURNING id::text, student_id::text, lecture_id::text, watched_time, created_at, updated_at`,
		studentID, lectureID, watchedTime,
	).Scan(&rec.ID, &rec.StudentID, &rec.LectureID, &rec.WatchedTime, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("upsert watch: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetWatch(ctx context.Context, studentID, lectureID string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var rec Record
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, student_id::text, lecture_id::text, watched_time, created_at, updated_at
		 FROM lecture_watched
		 WHERE student_id = $1::uuid AND lecture_id = $2::uuid
		 LIMIT 1`,
		studentID, lectureID,
	).Scan(&rec.ID, &rec.StudentID, &rec.LectureID, &rec.WatchedTime, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get watch: %w", err)
	}
	return rec, true, nil
}

func (s *PostgresStore) WatchesByStudent(ctx context.Context, studentID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, student_id::text, lecture_id::text, watched_time, created_at, updated_at
		 FROM lecture_watched
		 WHERE student_id = $1::uuid
		 ORDER BY updated_at ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.LectureID, &rec.WatchedTime, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watches: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteWatch(ctx context.Context, studentID, lectureID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`DELETE FROM lecture_watched
		 WHERE student_id = $1::uuid AND lecture_id = $2::uuid`,
		studentID, lectureID,
	)
	if err != nil {
		return false, fmt.Errorf("delete watch: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}
