package ports

import (
	"context"
	"time"

	"codelevels/internal/domain/execution"
)

// Attempt is the persisted summary of one graded run.
type Attempt struct {
	SubmissionID string
	LevelID      int
	Origin       execution.Origin
	Verdict      execution.VerdictKind
	ExitCode     int64
	Duration     time.Duration
	CreatedAt    time.Time
}

// AttemptStore keeps the history of graded runs.
type AttemptStore interface {
	Record(ctx context.Context, attempt Attempt) error
	Recent(ctx context.Context, levelID int, limit int) ([]Attempt, error)
	Close() error
}
