package docker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// cappedBuffer keeps the first limit bytes written to it and silently drops
// the rest, so a chatty unit cannot exhaust memory.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.limit <= 0 {
		return c.buf.Write(p)
	}
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + truncationNote
	}
	return c.buf.String()
}

const truncationNote = "\n[output truncated]\n"

// readOutput demultiplexes the container's log stream into stdout and stderr.
func (s *sandbox) readOutput(ctx context.Context, containerID string) (stdout, stderr string, err error) {
	logs, err := s.api.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", fmt.Errorf("read logs: %w", err)
	}
	defer logs.Close()

	out := &cappedBuffer{limit: s.cfg.MaxOutputBytes}
	errOut := &cappedBuffer{limit: s.cfg.MaxOutputBytes}
	if _, err := stdcopy.StdCopy(out, errOut, logs); err != nil {
		return "", "", fmt.Errorf("demultiplex logs: %w", err)
	}
	return out.String(), errOut.String(), nil
}
