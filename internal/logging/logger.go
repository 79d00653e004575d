// Package logging builds the process logger: text on stderr, optional JSON
// file output, and the systemd journal when running as a service.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// JournalMode selects whether records are sent to the systemd journal.
type JournalMode string

const (
	JournalAuto JournalMode = "auto"
	JournalOn   JournalMode = "on"
	JournalOff  JournalMode = "off"
)

// Options configures New.
type Options struct {
	Level slog.Leveler
	// Writer receives text output. Defaults to os.Stderr.
	Writer io.Writer
	// File, when set, receives JSON records appended to that path.
	File    string
	Journal JournalMode
}

// New returns a logger fanning out to every configured handler, and a
// function that closes the log file if one was opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	closeFn := func() error { return nil }

	underSystemd := runningAsService()
	var handlers []slog.Handler

	var terminal slog.Handler
	if !underSystemd || opts.Journal == JournalOff {
		terminal = slog.NewTextHandler(opts.Writer, handlerOpts)
		handlers = append(handlers, terminal)
	}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, handlerOpts))
		closeFn = file.Close
	}

	if opts.Journal == JournalOn || (opts.Journal != JournalOff && underSystemd) {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: opts.Level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminal == nil {
				terminal = slog.NewTextHandler(opts.Writer, handlerOpts)
				handlers = append(handlers, terminal)
			}
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("error", err)
			_ = terminal.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journal)
		}
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}

// ParseLevel maps debug/info/warn/error to a level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseJournalMode maps on/off/auto, defaulting to auto.
func ParseJournalMode(raw string) JournalMode {
	switch JournalMode(strings.ToLower(strings.TrimSpace(raw))) {
	case JournalOn:
		return JournalOn
	case JournalOff:
		return JournalOff
	default:
		return JournalAuto
	}
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

func runningAsService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.SplitN(strings.TrimSpace(string(content)), ":", 3)
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
