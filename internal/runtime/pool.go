// Package runtime holds runner decorators shared by every execution backend.
package runtime

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

// ErrSaturated is returned when no execution slot frees up within the queue
// wait.
var ErrSaturated = errors.New("execution pool saturated")

// Pool bounds the number of units executing at once on a runner.
type Pool struct {
	runner    ports.Runner
	sem       *semaphore.Weighted
	queueWait time.Duration
}

var _ ports.Runner = (*Pool)(nil)

// NewPool wraps runner so that at most maxParallel units run concurrently.
// Callers beyond that wait up to queueWait for a slot; a zero queueWait
// rejects them immediately.
func NewPool(runner ports.Runner, maxParallel int, queueWait time.Duration) *Pool {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	if queueWait < 0 {
		queueWait = 0
	}
	return &Pool{
		runner:    runner,
		sem:       semaphore.NewWeighted(int64(maxParallel)),
		queueWait: queueWait,
	}
}

// Run executes unit once a slot is available.
func (p *Pool) Run(ctx context.Context, unit execution.Unit) (*execution.Result, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	return p.runner.Run(ctx, unit)
}

// Close closes the wrapped runner.
func (p *Pool) Close() error {
	return p.runner.Close()
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.queueWait == 0 {
		if p.sem.TryAcquire(1) {
			return nil
		}
		return ErrSaturated
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.queueWait)
	defer cancel()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrSaturated
	}
	return nil
}
