// Package sqlite persists graded attempts in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id TEXT NOT NULL,
	level_id      INTEGER NOT NULL,
	origin        TEXT NOT NULL,
	verdict       TEXT NOT NULL,
	exit_code     INTEGER NOT NULL,
	duration_ns   INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS attempts_level_idx ON attempts (level_id, id DESC);`

// AttemptStore implements ports.AttemptStore on SQLite.
type AttemptStore struct {
	db *sql.DB
}

var _ ports.AttemptStore = (*AttemptStore)(nil)

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*AttemptStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &AttemptStore{db: db}, nil
}

// Record appends an attempt.
func (s *AttemptStore) Record(ctx context.Context, attempt ports.Attempt) error {
	createdAt := attempt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (submission_id, level_id, origin, verdict, exit_code, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.SubmissionID,
		attempt.LevelID,
		string(attempt.Origin),
		string(attempt.Verdict),
		attempt.ExitCode,
		int64(attempt.Duration),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert attempt %q: %w", attempt.SubmissionID, err)
	}
	return nil
}

// Recent returns up to limit attempts for levelID, newest first.
func (s *AttemptStore) Recent(ctx context.Context, levelID int, limit int) ([]ports.Attempt, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT submission_id, level_id, origin, verdict, exit_code, duration_ns, created_at
		 FROM attempts WHERE level_id = ? ORDER BY id DESC LIMIT ?`,
		levelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []ports.Attempt
	for rows.Next() {
		var (
			a               ports.Attempt
			origin, verdict string
			durationNS      int64
			createdAt       string
		)
		if err := rows.Scan(&a.SubmissionID, &a.LevelID, &origin, &verdict, &a.ExitCode, &durationNS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Origin = execution.Origin(origin)
		a.Verdict = execution.VerdictKind(verdict)
		a.Duration = time.Duration(durationNS)
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// Close closes the database.
func (s *AttemptStore) Close() error {
	return s.db.Close()
}
