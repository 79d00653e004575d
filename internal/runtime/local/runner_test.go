package local

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"codelevels/internal/domain/execution"
)

func newTestRunner(t *testing.T, limits execution.RunLimits) (*Runner, string) {
	t.Helper()

	if _, err := exec.LookPath(defaultInterpreter); err != nil {
		t.Skipf("%s not available: %v", defaultInterpreter, err)
	}

	dir := t.TempDir()
	return New(Config{TempDir: dir, DefaultLimits: limits}), dir
}

func assertNoUnitFiles(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("expected temp dir to be empty, found %v", names)
	}
}

func TestRunPassingUnit(t *testing.T) {
	t.Parallel()

	runner, dir := newTestRunner(t, execution.RunLimits{TimeLimit: 10 * time.Second})

	result, err := runner.Run(context.Background(), execution.Unit{Code: "x = 1", Testing: "assert x == 1"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", result.ExitCode, result.Stderr)
	}
	if result.Stderr != "" {
		t.Fatalf("expected empty stderr, got %q", result.Stderr)
	}
	if result.Status != execution.StatusOK || result.TimedOut {
		t.Fatalf("unexpected status %q timedOut=%v", result.Status, result.TimedOut)
	}
	assertNoUnitFiles(t, dir)
}

func TestRunFailingUnit(t *testing.T) {
	t.Parallel()

	runner, dir := newTestRunner(t, execution.RunLimits{TimeLimit: 10 * time.Second})

	result, err := runner.Run(context.Background(), execution.Unit{Code: "x = 1", Testing: "assert x == 2"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !strings.Contains(result.Stderr, "AssertionError") {
		t.Fatalf("expected AssertionError in stderr, got %q", result.Stderr)
	}
	if result.Status != execution.StatusRuntimeError {
		t.Fatalf("expected runtime error status, got %q", result.Status)
	}

	verdict := execution.Classify(result, nil, "1")
	if verdict.Kind != execution.VerdictTestFailure {
		t.Fatalf("expected test failure verdict, got %q", verdict.Kind)
	}
	assertNoUnitFiles(t, dir)
}

func TestRunSyntaxErrorIsCompileError(t *testing.T) {
	t.Parallel()

	runner, dir := newTestRunner(t, execution.RunLimits{TimeLimit: 10 * time.Second})

	result, err := runner.Run(context.Background(), execution.Unit{Code: "def f(:", Testing: "assert f() == 1"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != execution.StatusCompileError {
		t.Fatalf("expected compile error status, got %q (stderr %q)", result.Status, result.Stderr)
	}
	if !strings.Contains(result.Stderr, "SyntaxError") {
		t.Fatalf("expected SyntaxError in stderr, got %q", result.Stderr)
	}
	if !strings.Contains(result.Stderr, `"unit.py"`) || strings.Contains(result.Stderr, dir) {
		t.Fatalf("expected diagnostic to name unit.py only, got %q", result.Stderr)
	}

	verdict := execution.Classify(result, nil, "1")
	if verdict.Kind != execution.VerdictExecutionError {
		t.Fatalf("expected execution error verdict, got %q", verdict.Kind)
	}
	assertNoUnitFiles(t, dir)
}

func TestRunTracebackNamesUnitNotTempFile(t *testing.T) {
	t.Parallel()

	runner, dir := newTestRunner(t, execution.RunLimits{TimeLimit: 10 * time.Second})

	result, err := runner.Run(context.Background(), execution.Unit{
		Code:    "import sys\nprint(__name__, sys.argv[0])",
		Testing: "raise ValueError('boom')",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Stdout != "__main__ unit.py\n" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	if result.Status != execution.StatusRuntimeError {
		t.Fatalf("expected runtime error status, got %q", result.Status)
	}
	if !strings.Contains(result.Stderr, `File "unit.py", line 4`) || strings.Contains(result.Stderr, dir) {
		t.Fatalf("unexpected traceback %q", result.Stderr)
	}
}

func TestRunCapturesStdout(t *testing.T) {
	t.Parallel()

	runner, _ := newTestRunner(t, execution.RunLimits{})

	result, err := runner.Run(context.Background(), execution.Unit{Code: "print('hello')", Testing: "print('tests ran')"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Stdout != "hello\ntests ran\n" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
}

func TestRunTimesOut(t *testing.T) {
	t.Parallel()

	runner, dir := newTestRunner(t, execution.RunLimits{TimeLimit: time.Minute})

	start := time.Now()
	result, err := runner.Run(context.Background(), execution.Unit{
		Code:    "print('started', flush=True)\nwhile True:\n    pass",
		Testing: "assert False",
		Limits:  execution.RunLimits{TimeLimit: time.Second},
	})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.TimedOut || result.Status != execution.StatusTimeLimit {
		t.Fatalf("expected timeout, got %+v", result)
	}
	if elapsed > time.Second+defaultWaitDelay+2*time.Second {
		t.Fatalf("timeout took too long: %s", elapsed)
	}
	if !strings.Contains(result.Stdout, "started") {
		t.Fatalf("expected partial stdout to be kept, got %q", result.Stdout)
	}

	verdict := execution.Classify(result, nil, "1")
	if verdict.Kind != execution.VerdictExecutionError {
		t.Fatalf("expected execution error verdict, got %q", verdict.Kind)
	}
	assertNoUnitFiles(t, dir)
}

func TestRunMissingInterpreterIsLaunchError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := New(Config{Interpreter: "definitely-not-an-interpreter-7f3a", TempDir: dir})

	result, err := runner.Run(context.Background(), execution.Unit{Code: "x = 1", Testing: "assert x == 1"})
	if !errors.Is(err, execution.ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result, got %+v", result)
	}

	verdict := execution.Classify(result, err, "1")
	if verdict.Kind != execution.VerdictExecutionError {
		t.Fatalf("expected execution error verdict, got %q", verdict.Kind)
	}
	assertNoUnitFiles(t, dir)
}

func TestRunParentCancellation(t *testing.T) {
	t.Parallel()

	runner, dir := newTestRunner(t, execution.RunLimits{})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := runner.Run(ctx, execution.Unit{Code: "import time\ntime.sleep(30)", Testing: ""})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
	assertNoUnitFiles(t, dir)
}

func TestRunDoesNotLeakServiceSecrets(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "secret-value")

	runner, _ := newTestRunner(t, execution.RunLimits{TimeLimit: 10 * time.Second})

	result, err := runner.Run(context.Background(), execution.Unit{
		Code:    "import os",
		Testing: "assert 'ANTHROPIC_API_KEY' not in os.environ",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("child saw service secrets: %q", result.Stderr)
	}
}

func TestWriteUnitAllocatesUniquePaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unit := execution.Unit{Code: "x = 1", Testing: "assert x == 1"}

	first, cleanupFirst, err := writeUnit(dir, unit)
	if err != nil {
		t.Fatalf("writeUnit: %v", err)
	}
	second, cleanupSecond, err := writeUnit(dir, unit)
	if err != nil {
		t.Fatalf("writeUnit: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique paths, got %q twice", first)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read unit: %v", err)
	}
	if string(data) != "x = 1\n\nassert x == 1\n" {
		t.Fatalf("unexpected unit contents %q", data)
	}

	cleanupFirst()
	cleanupSecond()
	assertNoUnitFiles(t, dir)
}

func TestWriteUnitMissingDir(t *testing.T) {
	t.Parallel()

	_, cleanup, err := writeUnit("/nonexistent/dir/for/units", execution.Unit{})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	cleanup()
}
