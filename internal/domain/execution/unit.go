package execution

import "errors"

// ErrLaunch marks failures to start the child process at all, as opposed to
// the child running and exiting non-zero.
var ErrLaunch = errors.New("launch failed")

// Origin records which user action produced a run.
type Origin string

const (
	OriginRun    Origin = "run"
	OriginAssist Origin = "assist"
	OriginBatch  Origin = "batch"
)

// Submission is a transient request to grade code for a level.
type Submission struct {
	ID          string
	LevelID     string
	Code        string
	Instruction string
	Testing     string
}

// Unit is the code body and hidden testing body that are executed together.
type Unit struct {
	ID      string
	Code    string
	Testing string
	Limits  RunLimits
}

// Source returns the composed executable text of the unit.
func (u Unit) Source() string {
	return Compose(u.Code, u.Testing)
}

// Compose joins a code body and a testing body into one program, separated by
// a blank line and terminated by a newline.
func Compose(code, testing string) string {
	return code + "\n\n" + testing + "\n"
}

// RunReport captures the outcome of grading a Submission.
type RunReport struct {
	Submission Submission
	Origin     Origin
	Result     *Result
	Verdict    Verdict
	Err        error
}
