package kafka

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codelevels/internal/domain/execution"
)

const (
	messageTypeSubmission = "submission"
	messageTypeDone       = "done"
)

// submissionEnvelope is the wire form of a batch submission. level_id may be
// sent as a JSON number or a numeric string.
type submissionEnvelope struct {
	Type        string      `json:"type"`
	ID          string      `json:"id,omitempty"`
	LevelID     json.Number `json:"level_id,omitempty"`
	Code        string      `json:"code,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Testing     string      `json:"testing,omitempty"`
}

type reportEnvelope struct {
	ID          string                `json:"id"`
	LevelID     string                `json:"level_id"`
	Origin      execution.Origin      `json:"origin,omitempty"`
	Verdict     execution.VerdictKind `json:"verdict,omitempty"`
	NextLevelID string                `json:"next_level_id,omitempty"`
	Diagnostic  string                `json:"diagnostic,omitempty"`
	Status      execution.Status      `json:"status,omitempty"`
	ExitCode    *int64                `json:"exit_code,omitempty"`
	TimedOut    bool                  `json:"timed_out,omitempty"`
	Stdout      string                `json:"stdout,omitempty"`
	Stderr      string                `json:"stderr,omitempty"`
	DurationMs  *int64                `json:"duration_ms,omitempty"`
	Error       string                `json:"error,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}

func decodeSubmissionMessage(msg kafkago.Message) (execution.Submission, error) {
	var envelope submissionEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return execution.Submission{}, fmt.Errorf("decode message: %w", err)
	}

	msgType := envelope.Type
	if msgType == "" {
		msgType = messageTypeSubmission
	}

	switch msgType {
	case messageTypeSubmission:
		return envelope.toSubmission(msg)
	case messageTypeDone:
		return execution.Submission{}, io.EOF
	default:
		return execution.Submission{}, fmt.Errorf("unknown message type %q", msgType)
	}
}

func (e submissionEnvelope) toSubmission(msg kafkago.Message) (execution.Submission, error) {
	levelID := strings.TrimSpace(e.LevelID.String())
	if levelID == "" {
		return execution.Submission{}, fmt.Errorf("submission message missing level_id")
	}
	if _, err := execution.ParseLevelID(levelID); err != nil {
		return execution.Submission{}, fmt.Errorf("submission message: %w", err)
	}
	if strings.TrimSpace(e.Code) == "" {
		return execution.Submission{}, fmt.Errorf("submission message missing code")
	}

	id := e.ID
	if id == "" {
		id = string(msg.Key)
	}
	if id == "" {
		id = fmt.Sprintf("%s:%d:%d", msg.Topic, msg.Partition, msg.Offset)
	}

	return execution.Submission{
		ID:          id,
		LevelID:     levelID,
		Code:        e.Code,
		Instruction: e.Instruction,
		Testing:     e.Testing,
	}, nil
}

func encodeRunReport(report execution.RunReport) ([]byte, error) {
	payload, err := json.Marshal(makeReportEnvelope(report))
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return payload, nil
}

func makeReportEnvelope(report execution.RunReport) reportEnvelope {
	envelope := reportEnvelope{
		ID:          report.Submission.ID,
		LevelID:     report.Submission.LevelID,
		Origin:      report.Origin,
		Verdict:     report.Verdict.Kind,
		NextLevelID: report.Verdict.NextLevelID,
		Diagnostic:  report.Verdict.Diagnostic,
		Timestamp:   time.Now().UTC(),
	}

	if report.Result != nil {
		exit := report.Result.ExitCode
		dur := report.Result.Duration.Milliseconds()
		envelope.ExitCode = &exit
		envelope.DurationMs = &dur
		envelope.Status = report.Result.Status
		envelope.TimedOut = report.Result.TimedOut
		envelope.Stdout = report.Result.Stdout
		envelope.Stderr = report.Result.Stderr
	}
	if report.Err != nil {
		envelope.Error = report.Err.Error()
	}
	return envelope
}
