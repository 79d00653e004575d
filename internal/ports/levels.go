package ports

import (
	"context"
	"errors"

	"codelevels/internal/domain/level"
)

// ErrLevelNotFound is returned by a LevelStore for identifiers with no entry.
var ErrLevelNotFound = errors.New("level not found")

// LevelStore reads level files addressed by positive integer identifiers.
type LevelStore interface {
	// Load returns the parsed level or an error wrapping ErrLevelNotFound.
	Load(ctx context.Context, id int) (level.Level, error)
	// Count returns the number of levels present right now.
	Count(ctx context.Context) (int, error)
}
