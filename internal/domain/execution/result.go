package execution

import "time"

// Status summarises how a child process ended.
type Status string

const (
	StatusOK           Status = "ok"
	StatusRuntimeError Status = "runtime_error"
	StatusTimeLimit    Status = "time_limit"
	StatusMemoryLimit  Status = "memory_limit"
	StatusCompileError Status = "compile_error"
)

// Result captures the outcome of executing a composed unit.
type Result struct {
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int64
	TimedOut bool
	Duration time.Duration
}

// StatusFor derives the Status for a finished process.
func StatusFor(exitCode int64, timedOut bool) Status {
	switch {
	case timedOut:
		return StatusTimeLimit
	case exitCode != 0:
		return StatusRuntimeError
	default:
		return StatusOK
	}
}
