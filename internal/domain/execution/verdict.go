package execution

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const timeoutRounding = 10 * time.Millisecond

// ErrInvalidLevelID is returned for level identifiers that are not positive
// decimal integers.
var ErrInvalidLevelID = errors.New("invalid level id")

// VerdictKind enumerates the user-facing outcomes of a run.
type VerdictKind string

const (
	VerdictSuccess        VerdictKind = "success"
	VerdictTestFailure    VerdictKind = "test_failure"
	VerdictExecutionError VerdictKind = "execution_error"
)

// Verdict is the classified result of running a composed unit.
//
// NextLevelID is set only for VerdictSuccess; Diagnostic only for the two
// failure kinds.
type Verdict struct {
	Kind        VerdictKind
	NextLevelID string
	Diagnostic  string
}

// Passed reports whether the verdict advances the learner.
func (v Verdict) Passed() bool {
	return v.Kind == VerdictSuccess
}

// Classify maps an execution result to a Verdict for the originating level.
//
// runErr is the error returned by the runner. A non-nil runErr or a timed-out
// result is an execution error; it is never reported as a test failure.
func Classify(result *Result, runErr error, levelID string) Verdict {
	switch {
	case runErr != nil:
		return Verdict{
			Kind:       VerdictExecutionError,
			Diagnostic: fmt.Sprintf("failed to launch code: %v", runErr),
		}
	case result == nil:
		return Verdict{
			Kind:       VerdictExecutionError,
			Diagnostic: "runner returned no result",
		}
	case result.TimedOut || result.Status == StatusTimeLimit:
		return Verdict{
			Kind:       VerdictExecutionError,
			Diagnostic: fmt.Sprintf("execution timed out after %s", result.Duration.Round(timeoutRounding)),
		}
	case result.Status == StatusMemoryLimit:
		return Verdict{
			Kind:       VerdictExecutionError,
			Diagnostic: "execution exceeded the memory limit",
		}
	case result.Status == StatusCompileError:
		return Verdict{
			Kind:       VerdictExecutionError,
			Diagnostic: "code does not compile:\n" + result.Stderr,
		}
	case result.ExitCode == 0:
		next, err := NextLevelID(levelID)
		if err != nil {
			return Verdict{
				Kind:       VerdictExecutionError,
				Diagnostic: fmt.Sprintf("tests passed but next level is undefined: %v", err),
			}
		}
		return Verdict{Kind: VerdictSuccess, NextLevelID: next}
	default:
		diagnostic := result.Stderr
		if strings.TrimSpace(diagnostic) == "" {
			diagnostic = result.Stdout
		}
		if strings.TrimSpace(diagnostic) == "" {
			diagnostic = fmt.Sprintf("tests exited with status %d", result.ExitCode)
		}
		return Verdict{Kind: VerdictTestFailure, Diagnostic: diagnostic}
	}
}

// NextLevelID returns the decimal successor of a positive integer level id.
func NextLevelID(levelID string) (string, error) {
	n, err := ParseLevelID(levelID)
	if err != nil {
		return "", err
	}
	if n == math.MaxInt {
		return "", fmt.Errorf("%w: %q has no successor", ErrInvalidLevelID, levelID)
	}
	return strconv.Itoa(n + 1), nil
}

// ParseLevelID parses a positive decimal level identifier in canonical form:
// no sign, padding or surrounding whitespace.
func ParseLevelID(levelID string) (int, error) {
	n, err := strconv.Atoi(levelID)
	if err != nil || strconv.Itoa(n) != levelID {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevelID, levelID)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidLevelID, levelID)
	}
	return n, nil
}
