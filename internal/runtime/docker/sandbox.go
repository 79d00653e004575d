package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"codelevels/internal/domain/execution"
)

const (
	haltGrace   = 5 * time.Second
	reapTimeout = 15 * time.Second
)

// sandbox drives one container per unit: create, copy, start, wait, collect,
// remove.
type sandbox struct {
	api containerAPI
	cfg Config
	now func() time.Time
}

func newSandbox(api containerAPI, cfg Config) *sandbox {
	return &sandbox{api: api, cfg: cfg.withDefaults(), now: time.Now}
}

func (s *sandbox) pull(ctx context.Context) error {
	progress, err := s.api.ImagePull(ctx, s.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", s.cfg.Image, err)
	}
	defer progress.Close()
	if _, err := io.Copy(io.Discard, progress); err != nil {
		return fmt.Errorf("pull image %s: %w", s.cfg.Image, err)
	}
	return nil
}

func (s *sandbox) run(ctx context.Context, unit execution.Unit) (*execution.Result, error) {
	limits := unit.Limits.Merge(s.cfg.DefaultLimits)

	id, err := s.create(ctx, limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrLaunch, err)
	}
	defer s.remove(id)

	archive, err := unitArchive(unitFilename, unit.Source(), s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrLaunch, err)
	}
	if err := s.api.CopyToContainer(ctx, id, s.cfg.Workdir, archive, container.CopyToContainerOptions{}); err != nil {
		return nil, fmt.Errorf("%w: copy unit: %v", execution.ErrLaunch, err)
	}

	start := s.now()
	if err := s.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("%w: start container: %v", execution.ErrLaunch, err)
	}

	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if limits.TimeLimit > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
	}
	exitCode, err := s.await(waitCtx, id)
	cancel()

	switch {
	case err == nil:
		return s.collect(ctx, id, exitCode, start)
	case ctx.Err() != nil:
		s.halt(id)
		return nil, fmt.Errorf("run cancelled: %w", ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return s.collectTimedOut(id, start)
	default:
		return nil, err
	}
}

func (s *sandbox) create(ctx context.Context, limits execution.RunLimits) (string, error) {
	pids := s.cfg.PidsLimit
	host := &container.HostConfig{
		NetworkMode: "none",
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
		Resources: container.Resources{
			NanoCPUs:  s.cfg.NanoCPUs,
			PidsLimit: &pids,
		},
	}
	if limits.MemoryLimitBytes > 0 {
		host.Resources.Memory = limits.MemoryLimitBytes
		host.Resources.MemorySwap = limits.MemoryLimitBytes
	}

	resp, err := s.api.ContainerCreate(ctx,
		&container.Config{
			Image:           s.cfg.Image,
			Cmd:             []string{s.cfg.Interpreter, "-u", "-B", "-c", execution.Bootstrap, unitFilename},
			User:            s.cfg.User,
			WorkingDir:      s.cfg.Workdir,
			NetworkDisabled: true,
			AttachStdout:    true,
			AttachStderr:    true,
			Env:             []string{"PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8"},
		},
		host, nil, nil, "",
	)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	return resp.ID, nil
}

// await blocks until the container stops and returns its exit code.
func (s *sandbox) await(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := s.api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return 0, fmt.Errorf("container %s: %s", id, status.Error.Message)
		}
		return status.StatusCode, nil
	case err := <-errCh:
		return 0, fmt.Errorf("wait for container: %w", err)
	case <-ctx.Done():
		return 0, fmt.Errorf("wait for container: %w", ctx.Err())
	}
}

// halt kills the container and waits briefly for it to stop. It returns the
// exit code, or -1 when the container did not report one.
func (s *sandbox) halt(id string) int64 {
	stopCtx, cancel := context.WithTimeout(context.Background(), haltGrace)
	defer cancel()

	immediately := 0
	if err := s.api.ContainerStop(stopCtx, id, container.StopOptions{Timeout: &immediately}); err != nil && !client.IsErrNotFound(err) {
		return -1
	}

	waitCtx, cancelWait := context.WithTimeout(context.Background(), reapTimeout)
	defer cancelWait()
	code, err := s.await(waitCtx, id)
	if err != nil {
		return -1
	}
	return code
}

func (s *sandbox) collect(ctx context.Context, id string, exitCode int64, start time.Time) (*execution.Result, error) {
	duration := s.now().Sub(start)
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	info, err := s.api.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	stdout, stderr, err := s.readOutput(ctx, id)
	if err != nil {
		return nil, err
	}

	status := execution.StatusFor(exitCode, false)
	if diagnostic, ok := execution.CompileFailure(exitCode, stderr); ok {
		status = execution.StatusCompileError
		stderr = diagnostic
	}
	if info.ContainerJSONBase != nil && info.State != nil && info.State.OOMKilled {
		status = execution.StatusMemoryLimit
	}

	return &execution.Result{
		Status:   status,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// collectTimedOut keeps whatever the unit printed before it was killed.
func (s *sandbox) collectTimedOut(id string, start time.Time) (*execution.Result, error) {
	exitCode := s.halt(id)
	duration := s.now().Sub(start)

	stdout, stderr, err := s.readOutput(context.Background(), id)
	if err != nil {
		return nil, err
	}

	return &execution.Result{
		Status:   execution.StatusTimeLimit,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		TimedOut: true,
		Duration: duration,
	}, nil
}

func (s *sandbox) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
	defer cancel()
	_ = s.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}
