package execution

import "time"

// RunLimits describes optional resource boundaries for a single execution.
//
// A zero value RunLimits imposes no additional restrictions.
type RunLimits struct {
	// TimeLimit caps wall-clock time for the child process. Zero means no limit.
	TimeLimit time.Duration
	// MemoryLimitBytes caps sandbox memory in bytes. Only container backends honour it.
	MemoryLimitBytes int64
}

// Normalize clamps negative values to zero.
func (l RunLimits) Normalize() RunLimits {
	if l.TimeLimit < 0 {
		l.TimeLimit = 0
	}
	if l.MemoryLimitBytes < 0 {
		l.MemoryLimitBytes = 0
	}
	return l
}

// Merge returns defaults overridden by every positive field of l.
func (l RunLimits) Merge(defaults RunLimits) RunLimits {
	effective := defaults.Normalize()
	overrides := l.Normalize()

	if overrides.TimeLimit > 0 {
		effective.TimeLimit = overrides.TimeLimit
	}
	if overrides.MemoryLimitBytes > 0 {
		effective.MemoryLimitBytes = overrides.MemoryLimitBytes
	}
	return effective
}
