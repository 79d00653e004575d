// Package docker runs composed units inside throwaway containers.
//
// Each run gets a fresh container with networking disabled, every capability
// dropped, no-new-privileges, a non-root user and CPU, memory and pid limits.
// The container is force-removed on every exit path.
package docker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/client"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

const (
	unitFilename = execution.UnitName
	pullTimeout  = 5 * time.Minute
)

// Runner implements ports.Runner backed by Docker containers.
type Runner struct {
	sandbox *sandbox
	api     containerAPI

	pullMu sync.Mutex
	pulled bool
}

var _ ports.Runner = (*Runner)(nil)

// New constructs a Runner talking to the Docker daemon configured in the
// environment.
func New(cfg Config) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker runtime: create client: %w", err)
	}
	return newRunnerWithAPI(cli, cfg), nil
}

func newRunnerWithAPI(api containerAPI, cfg Config) *Runner {
	return &Runner{sandbox: newSandbox(api, cfg), api: api}
}

// Run executes the composed unit in a new container. The image is pulled on
// first use; a failed pull is retried by the next run.
func (r *Runner) Run(ctx context.Context, unit execution.Unit) (*execution.Result, error) {
	if err := r.ensureImage(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrLaunch, err)
	}
	return r.sandbox.run(ctx, unit)
}

// ensureImage pulls the image at most once successfully. The pull is
// detached from ctx so a caller that gives up does not abort it for the
// callers queued behind it.
func (r *Runner) ensureImage(ctx context.Context) error {
	r.pullMu.Lock()
	defer r.pullMu.Unlock()
	if r.pulled {
		return nil
	}

	pullCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pullTimeout)
	defer cancel()
	if err := r.sandbox.pull(pullCtx); err != nil {
		return err
	}
	r.pulled = true
	return nil
}

// Close releases the Docker client.
func (r *Runner) Close() error {
	if err := r.api.Close(); err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	return nil
}
