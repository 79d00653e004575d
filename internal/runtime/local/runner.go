// Package local runs composed units as child processes of the service.
//
// The child runs with the privileges of the service itself, a scrubbed
// environment and its own process group so a time limit kills everything it
// spawned. This is process isolation only; use the docker runtime when the
// code comes from untrusted users.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

const (
	defaultInterpreter = "python3"
	defaultWaitDelay   = 2 * time.Second
)

var defaultArgs = []string{"-u", "-B"}

// passthroughEnv lists the variables children inherit from the service.
var passthroughEnv = []string{"PATH", "HOME", "LANG", "LC_ALL", "SYSTEMROOT"}

// Config describes how to create a local Runner.
type Config struct {
	// Interpreter is the program that executes unit files. Defaults to python3.
	Interpreter string
	// Args precede the bootstrap and unit path on the command line. Defaults
	// to -u -B.
	Args []string
	// TempDir holds unit files while they run. Defaults to os.TempDir().
	TempDir       string
	DefaultLimits execution.RunLimits
}

// Runner executes units with a local interpreter.
type Runner struct {
	interpreter string
	args        []string
	tempDir     string
	limits      execution.RunLimits
	env         []string
	waitDelay   time.Duration
}

var _ ports.Runner = (*Runner)(nil)

// New constructs a Runner from cfg.
func New(cfg Config) *Runner {
	interpreter := cfg.Interpreter
	if interpreter == "" {
		interpreter = defaultInterpreter
	}
	args := cfg.Args
	if args == nil {
		args = defaultArgs
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Runner{
		interpreter: interpreter,
		args:        append([]string(nil), args...),
		tempDir:     tempDir,
		limits:      cfg.DefaultLimits.Normalize(),
		env:         childEnv(tempDir),
		waitDelay:   defaultWaitDelay,
	}
}

// Run composes unit into a temporary file and executes it.
func (r *Runner) Run(ctx context.Context, unit execution.Unit) (*execution.Result, error) {
	limits := unit.Limits.Merge(r.limits)

	path, cleanup, err := writeUnit(r.tempDir, unit)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runCtx := ctx
	if limits.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
		defer cancel()
	}

	args := make([]string, 0, len(r.args)+3)
	args = append(args, r.args...)
	args = append(args, "-c", execution.Bootstrap, path)

	cmd := exec.CommandContext(runCtx, r.interpreter, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.Env = r.env
	cmd.WaitDelay = r.waitDelay
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", execution.ErrLaunch, r.interpreter, err)
	}
	waitErr := cmd.Wait()
	duration := time.Since(start)

	if waitErr != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("run unit: %w", ctx.Err())
	}

	timedOut := waitErr != nil && limits.TimeLimit > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if waitErr != nil && !timedOut {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("wait for child: %w", waitErr)
		}
	}

	exitCode := int64(-1)
	if cmd.ProcessState != nil {
		exitCode = int64(cmd.ProcessState.ExitCode())
	}

	result := &execution.Result{
		Status:   execution.StatusFor(exitCode, timedOut),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		TimedOut: timedOut,
		Duration: duration,
	}
	if !timedOut {
		if diagnostic, ok := execution.CompileFailure(exitCode, result.Stderr); ok {
			result.Status = execution.StatusCompileError
			result.Stderr = diagnostic
		}
	}
	return result, nil
}

// Close implements ports.Runner. The local runner holds no resources.
func (r *Runner) Close() error {
	return nil
}

func childEnv(tempDir string) []string {
	env := make([]string, 0, len(passthroughEnv)+3)
	for _, key := range passthroughEnv {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return append(env,
		"TMPDIR="+tempDir,
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONIOENCODING=utf-8",
	)
}
