package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesTextAndJSONFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "codelevels.log")

	logger, closeFn, err := New(Options{
		Level:   slog.LevelInfo,
		Writer:  &buf,
		File:    file,
		Journal: JournalOff,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("submission graded", "level_id", 3, "verdict", "success")

	if err := closeFn(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	text := buf.String()
	if strings.Contains(text, "hidden") {
		t.Fatalf("debug record should be filtered, got %q", text)
	}
	if !strings.Contains(text, "msg=\"submission graded\"") || !strings.Contains(text, "verdict=success") {
		t.Fatalf("unexpected text output %q", text)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one JSON record, got %d", len(lines))
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode JSON record: %v", err)
	}
	if record["msg"] != "submission graded" || record["level_id"] != float64(3) {
		t.Fatalf("unexpected JSON record %v", record)
	}
}

func TestNewFailsOnUnwritableFile(t *testing.T) {
	t.Parallel()

	_, _, err := New(Options{
		Writer:  &bytes.Buffer{},
		File:    filepath.Join(t.TempDir(), "missing", "dir", "log.json"),
		Journal: JournalOff,
	})
	if err == nil {
		t.Fatalf("expected error for unwritable log file")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseJournalMode(t *testing.T) {
	t.Parallel()

	cases := map[string]JournalMode{
		"":     JournalAuto,
		"on":   JournalOn,
		"OFF":  JournalOff,
		"auto": JournalAuto,
		"yes":  JournalAuto,
	}
	for input, want := range cases {
		if got := ParseJournalMode(input); got != want {
			t.Fatalf("ParseJournalMode(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestToJournalKey(t *testing.T) {
	t.Parallel()

	if got := toJournalKey("submission.id-2"); got != "SUBMISSION_ID_2" {
		t.Fatalf("unexpected journal key %q", got)
	}
}
