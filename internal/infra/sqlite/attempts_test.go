package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

func openTestStore(t *testing.T) *AttemptStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	inputs := []ports.Attempt{
		{SubmissionID: "a", LevelID: 1, Origin: execution.OriginRun, Verdict: execution.VerdictTestFailure, ExitCode: 1, Duration: 40 * time.Millisecond, CreatedAt: base},
		{SubmissionID: "b", LevelID: 2, Origin: execution.OriginBatch, Verdict: execution.VerdictSuccess, CreatedAt: base.Add(time.Second)},
		{SubmissionID: "c", LevelID: 1, Origin: execution.OriginAssist, Verdict: execution.VerdictSuccess, Duration: time.Second, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, a := range inputs {
		if err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record(%s) returned error: %v", a.SubmissionID, err)
		}
	}

	got, err := store.Recent(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two attempts for level 1, got %d", len(got))
	}
	if got[0].SubmissionID != "c" || got[1].SubmissionID != "a" {
		t.Fatalf("expected newest first, got %s then %s", got[0].SubmissionID, got[1].SubmissionID)
	}
	want := inputs[2]
	if got[0].Origin != want.Origin || got[0].Verdict != want.Verdict || got[0].Duration != want.Duration || !got[0].CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("attempt not preserved: got %+v want %+v", got[0], want)
	}
	if got[1].ExitCode != 1 || got[1].Duration != 40*time.Millisecond || got[1].Verdict != execution.VerdictTestFailure {
		t.Fatalf("unexpected attempt %+v", got[1])
	}

	limited, err := store.Recent(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(limited) != 1 || limited[0].SubmissionID != "c" {
		t.Fatalf("unexpected limited attempts %+v", limited)
	}
}

func TestRecentEmpty(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	got, err := store.Recent(context.Background(), 42, 5)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no attempts, got %d", len(got))
	}
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	before := time.Now().Add(-time.Second)
	if err := store.Record(context.Background(), ports.Attempt{SubmissionID: "x", LevelID: 3}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	got, err := store.Recent(context.Background(), 3, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Recent returned %v, %v", got, err)
	}
	if got[0].CreatedAt.Before(before) {
		t.Fatalf("expected a current timestamp, got %s", got[0].CreatedAt)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "attempts.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Record(context.Background(), ports.Attempt{SubmissionID: "kept", LevelID: 1}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Recent(context.Background(), 1, 5)
	if err != nil || len(got) != 1 || got[0].SubmissionID != "kept" {
		t.Fatalf("expected persisted attempt, got %+v (%v)", got, err)
	}
}
