package ports

import (
	"context"

	"codelevels/internal/domain/execution"
)

// Runner executes composed units in an isolated child process.
//
// Run returns an error wrapping execution.ErrLaunch when the child could not
// be started. A child that runs and fails is reported through the Result.
type Runner interface {
	Run(ctx context.Context, unit execution.Unit) (*execution.Result, error)
	Close() error
}
