package docker

import "codelevels/internal/domain/execution"

const (
	defaultImage       = "python:3.12-alpine"
	defaultWorkdir     = "/tmp"
	defaultInterpreter = "python"
	defaultUser        = "65534:65534"
	defaultNanoCPUs    = 1_000_000_000
	defaultPidsLimit   = 64
	defaultMaxOutput   = 1 << 20
)

// Config describes how to create a Docker-backed runner.
type Config struct {
	Image       string
	Workdir     string
	Interpreter string
	// User is the non-root uid:gid the code runs as.
	User          string
	NanoCPUs      int64
	PidsLimit     int64
	DefaultLimits execution.RunLimits
	// MaxOutputBytes caps each of stdout and stderr. Negative disables the cap.
	MaxOutputBytes int
}

func (c Config) withDefaults() Config {
	if c.Image == "" {
		c.Image = defaultImage
	}
	if c.Workdir == "" {
		c.Workdir = defaultWorkdir
	}
	if c.Interpreter == "" {
		c.Interpreter = defaultInterpreter
	}
	if c.User == "" {
		c.User = defaultUser
	}
	if c.NanoCPUs <= 0 {
		c.NanoCPUs = defaultNanoCPUs
	}
	if c.PidsLimit <= 0 {
		c.PidsLimit = defaultPidsLimit
	}
	if c.MaxOutputBytes == 0 {
		c.MaxOutputBytes = defaultMaxOutput
	}
	c.DefaultLimits = c.DefaultLimits.Normalize()
	return c
}
