package execution

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"testing"
	"time"
)

func TestNextLevelID(t *testing.T) {
	t.Parallel()

	next, err := NextLevelID("3")
	if err != nil {
		t.Fatalf("NextLevelID returned error: %v", err)
	}
	if next != "4" {
		t.Fatalf("expected next level 4, got %q", next)
	}

	next, err = NextLevelID("99")
	if err != nil || next != "100" {
		t.Fatalf("NextLevelID(99) = %q, %v", next, err)
	}
}

func TestNextLevelIDLargestSupported(t *testing.T) {
	t.Parallel()

	next, err := NextLevelID(strconv.Itoa(math.MaxInt - 1))
	if err != nil || next != strconv.Itoa(math.MaxInt) {
		t.Fatalf("NextLevelID(MaxInt-1) = %q, %v", next, err)
	}
	if _, err := NextLevelID(strconv.Itoa(math.MaxInt)); !errors.Is(err, ErrInvalidLevelID) {
		t.Fatalf("expected ErrInvalidLevelID for MaxInt, got %v", err)
	}
}

func TestNextLevelIDRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"", "abc", "3a", "0", "-2", "1.5",
		"+3", " 3 ", "03", "9223372036854775807", "99999999999999999999",
	} {
		if _, err := NextLevelID(input); !errors.Is(err, ErrInvalidLevelID) {
			t.Fatalf("NextLevelID(%q) error = %v, want ErrInvalidLevelID", input, err)
		}
	}
}

func TestCompileFailure(t *testing.T) {
	t.Parallel()

	stderr := "<unknown>:1: SyntaxWarning: invalid escape sequence\n" + compileErrorMarker + "SyntaxError: invalid syntax\n"
	got, ok := CompileFailure(ExitCompileError, stderr)
	if !ok || got != "<unknown>:1: SyntaxWarning: invalid escape sequence\nSyntaxError: invalid syntax\n" {
		t.Fatalf("CompileFailure = %q, %v", got, ok)
	}

	if _, ok := CompileFailure(ExitCompileError, "user code exited with 86\n"); ok {
		t.Fatal("exit code alone must not count as a compile failure")
	}
	if _, ok := CompileFailure(1, compileErrorMarker); ok {
		t.Fatal("marker without the compile exit code must not count")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		result     *Result
		err        error
		levelID    string
		wantKind   VerdictKind
		wantNext   string
		wantDetail string
	}{
		{
			name:     "exit zero advances",
			result:   &Result{Status: StatusOK},
			levelID:  "3",
			wantKind: VerdictSuccess,
			wantNext: "4",
		},
		{
			name:       "non-zero exit carries stderr",
			result:     &Result{Status: StatusRuntimeError, ExitCode: 1, Stderr: "AssertionError\n", Stdout: "ignored"},
			levelID:    "1",
			wantKind:   VerdictTestFailure,
			wantDetail: "AssertionError\n",
		},
		{
			name:       "non-zero exit falls back to stdout",
			result:     &Result{Status: StatusRuntimeError, ExitCode: 2, Stdout: "bad"},
			levelID:    "1",
			wantKind:   VerdictTestFailure,
			wantDetail: "bad",
		},
		{
			name:       "silent non-zero exit",
			result:     &Result{Status: StatusRuntimeError, ExitCode: 3},
			levelID:    "1",
			wantKind:   VerdictTestFailure,
			wantDetail: "tests exited with status 3",
		},
		{
			name:       "timeout is an execution error",
			result:     &Result{Status: StatusTimeLimit, TimedOut: true, ExitCode: -1, Duration: time.Second},
			levelID:    "1",
			wantKind:   VerdictExecutionError,
			wantDetail: "execution timed out after 1s",
		},
		{
			name:       "launch failure is an execution error",
			err:        fmt.Errorf("%w: python3 not found", ErrLaunch),
			levelID:    "1",
			wantKind:   VerdictExecutionError,
			wantDetail: "failed to launch code: launch failed: python3 not found",
		},
		{
			name:       "memory limit",
			result:     &Result{Status: StatusMemoryLimit, ExitCode: 137},
			levelID:    "1",
			wantKind:   VerdictExecutionError,
			wantDetail: "execution exceeded the memory limit",
		},
		{
			name:       "compile failure is an execution error",
			result:     &Result{Status: StatusCompileError, ExitCode: ExitCompileError, Stderr: "SyntaxError: invalid syntax\n"},
			levelID:    "1",
			wantKind:   VerdictExecutionError,
			wantDetail: "code does not compile:\nSyntaxError: invalid syntax\n",
		},
		{
			name:     "success with non-numeric level",
			result:   &Result{Status: StatusOK},
			levelID:  "intro",
			wantKind: VerdictExecutionError,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			verdict := Classify(tc.result, tc.err, tc.levelID)
			if verdict.Kind != tc.wantKind {
				t.Fatalf("expected kind %q, got %q (%+v)", tc.wantKind, verdict.Kind, verdict)
			}
			if verdict.NextLevelID != tc.wantNext {
				t.Fatalf("expected next level %q, got %q", tc.wantNext, verdict.NextLevelID)
			}
			if tc.wantDetail != "" && verdict.Diagnostic != tc.wantDetail {
				t.Fatalf("expected diagnostic %q, got %q", tc.wantDetail, verdict.Diagnostic)
			}
		})
	}
}

func TestComposeSeparatesBodiesWithBlankLine(t *testing.T) {
	t.Parallel()

	got := Compose("x = 1", "assert x == 1")
	want := "x = 1\n\nassert x == 1\n"
	if got != want {
		t.Fatalf("Compose = %q, want %q", got, want)
	}

	unit := Unit{Code: "x = 1", Testing: "assert x == 1"}
	if unit.Source() != want {
		t.Fatalf("Unit.Source = %q, want %q", unit.Source(), want)
	}
}

func TestRunLimitsMerge(t *testing.T) {
	t.Parallel()

	defaults := RunLimits{TimeLimit: 10 * time.Second, MemoryLimitBytes: 64}
	got := RunLimits{TimeLimit: time.Second, MemoryLimitBytes: -5}.Merge(defaults)
	if got.TimeLimit != time.Second {
		t.Fatalf("expected override time limit, got %s", got.TimeLimit)
	}
	if got.MemoryLimitBytes != 64 {
		t.Fatalf("expected default memory limit, got %d", got.MemoryLimitBytes)
	}

	if got := (RunLimits{}).Merge(RunLimits{TimeLimit: -1}); got.TimeLimit != 0 {
		t.Fatalf("expected negative default to clamp to zero, got %s", got.TimeLimit)
	}
}
