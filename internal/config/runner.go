package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
	"codelevels/internal/runtime"
	"codelevels/internal/runtime/docker"
	"codelevels/internal/runtime/local"
)

const (
	BackendLocal  = "local"
	BackendDocker = "docker"

	defaultQueueWait = 5 * time.Second
)

// Runner holds the execution backend settings.
type Runner struct {
	Backend     string
	Interpreter string
	TempDir     string
	Image       string
	MemoryLimit int64
	MaxParallel int
	QueueWait   time.Duration
}

// RunnerFromEnv reads RUNNER_* and PYTHON_* variables.
func RunnerFromEnv() Runner {
	return Runner{
		Backend:     strings.ToLower(EnvOrDefault("RUNNER_BACKEND", BackendLocal)),
		Interpreter: os.Getenv("PYTHON_INTERPRETER"),
		TempDir:     os.Getenv("RUNNER_TEMP_DIR"),
		Image:       os.Getenv("PYTHON_IMAGE"),
		MemoryLimit: ParseBytes(os.Getenv("RUNNER_MEMORY_LIMIT")),
		MaxParallel: ParsePositive(os.Getenv("RUNNER_MAX_PARALLEL"), 4),
		QueueWait:   ParseDuration(os.Getenv("RUNNER_QUEUE_WAIT"), defaultQueueWait),
	}
}

// Build constructs the configured backend wrapped in a bounded pool.
func (r Runner) Build() (ports.Runner, error) {
	limits := execution.RunLimits{MemoryLimitBytes: r.MemoryLimit}

	var backend ports.Runner
	switch r.Backend {
	case BackendLocal, "":
		backend = local.New(local.Config{
			Interpreter:   r.Interpreter,
			TempDir:       r.TempDir,
			DefaultLimits: limits,
		})
	case BackendDocker:
		runner, err := docker.New(docker.Config{
			Image:         r.Image,
			DefaultLimits: limits,
		})
		if err != nil {
			return nil, err
		}
		backend = runner
	default:
		return nil, fmt.Errorf("unknown runner backend %q", r.Backend)
	}

	return runtime.NewPool(backend, r.MaxParallel, r.QueueWait), nil
}
