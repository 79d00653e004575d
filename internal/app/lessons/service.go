// Package lessons implements the level, run and assist operations served to
// learners.
package lessons

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"codelevels/internal/domain/execution"
	"codelevels/internal/domain/level"
	"codelevels/internal/ports"
)

const (
	defaultAssistTimeout = 10 * time.Second
	defaultHistoryLimit  = 20
	maxHistoryLimit      = 200
)

var (
	// ErrHistoryDisabled is returned by Attempts when no attempt store is wired.
	ErrHistoryDisabled = errors.New("attempt history is disabled")
	// ErrAssistantUnavailable is wrapped in a GatewayError when no code
	// modifier is configured.
	ErrAssistantUnavailable = errors.New("code assistant is not configured")
)

// GatewayError reports a failed call to the code assistant.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return "code assistant: " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Config holds execution settings applied to every run.
type Config struct {
	// RunTimeout bounds plain runs. Zero leaves them unbounded.
	RunTimeout time.Duration
	// AssistTimeout bounds runs of assistant-modified code. Zero uses 10s.
	AssistTimeout    time.Duration
	MemoryLimitBytes int64
}

// Option customises a Service.
type Option func(*Service)

// WithAttemptStore records every graded attempt in store.
func WithAttemptStore(store ports.AttemptStore) Option {
	return func(s *Service) { s.attempts = store }
}

// WithPublisher publishes every graded attempt through publisher.
func WithPublisher(publisher ports.RunReportPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithIDGenerator overrides how submission identifiers are produced.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) { s.newID = next }
}

// Service coordinates the level store, the code assistant and the runner.
type Service struct {
	levels    ports.LevelStore
	runner    ports.Runner
	modifier  ports.CodeModifier
	attempts  ports.AttemptStore
	publisher ports.RunReportPublisher
	cfg       Config
	logger    *slog.Logger
	newID     func() string
}

// NewService wires a Service. modifier may be nil, in which case ModifyCode
// fails with a GatewayError.
func NewService(levels ports.LevelStore, runner ports.Runner, modifier ports.CodeModifier, cfg Config, opts ...Option) *Service {
	if cfg.RunTimeout < 0 {
		cfg.RunTimeout = 0
	}
	if cfg.AssistTimeout <= 0 {
		cfg.AssistTimeout = defaultAssistTimeout
	}
	s := &Service{
		levels:   levels,
		runner:   runner,
		modifier: modifier,
		cfg:      cfg,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LevelView is what a learner sees for one level.
type LevelView struct {
	ID        int
	Objective string
	Code      string
	Testing   string
	Total     int
	Found     bool
}

// Outcome is the graded result of one submission.
type Outcome struct {
	SubmissionID string
	LevelID      string
	Verdict      execution.Verdict
	Result       *execution.Result
}

// Output renders the program output shown to the learner: stdout followed
// by stderr, or the verdict diagnostic when the program never produced a
// result.
func (o Outcome) Output() string {
	if o.Result == nil {
		return o.Verdict.Diagnostic
	}
	var parts []string
	if o.Result.Stdout != "" {
		parts = append(parts, strings.TrimRight(o.Result.Stdout, "\n"))
	}
	if o.Result.Stderr != "" {
		parts = append(parts, strings.TrimRight(o.Result.Stderr, "\n"))
	}
	if len(parts) == 0 && !o.Verdict.Passed() {
		return o.Verdict.Diagnostic
	}
	return strings.Join(parts, "\n")
}

// ModifyRequest asks the assistant to change code and grades the result.
type ModifyRequest struct {
	LevelID     string
	Code        string
	Instruction string
	// Testing replaces the level's testing region when non-empty.
	Testing string
}

// ModifyResult carries the rewritten code and its graded run.
type ModifyResult struct {
	ModifiedCode string
	Outcome      Outcome
}

// GetLevel loads a level. A missing level is not an error: the view carries
// the per-region sentinel texts and Found is false.
func (s *Service) GetLevel(ctx context.Context, id string) (LevelView, error) {
	n, err := execution.ParseLevelID(id)
	if err != nil {
		return LevelView{}, err
	}

	total, err := s.levels.Count(ctx)
	if err != nil {
		return LevelView{}, fmt.Errorf("count levels: %w", err)
	}

	lvl, err := s.levels.Load(ctx, n)
	found := true
	if err != nil {
		if !errors.Is(err, ports.ErrLevelNotFound) {
			return LevelView{}, fmt.Errorf("load level %d: %w", n, err)
		}
		lvl = level.NotFound()
		found = false
	}

	return LevelView{
		ID:        n,
		Objective: lvl.Objective,
		Code:      lvl.Code,
		Testing:   lvl.Testing,
		Total:     total,
		Found:     found,
	}, nil
}

// RunCode grades code against the level's testing region.
func (s *Service) RunCode(ctx context.Context, levelID, code string) (Outcome, error) {
	report := s.Grade(ctx, execution.Submission{LevelID: levelID, Code: code}, execution.OriginRun)
	return outcomeFrom(report)
}

// ModifyCode rewrites code with the assistant, then grades the rewritten
// code against req.Testing or, when that is empty, the level's testing
// region. A failing assistant call returns a *GatewayError.
func (s *Service) ModifyCode(ctx context.Context, req ModifyRequest) (ModifyResult, error) {
	if _, err := execution.ParseLevelID(req.LevelID); err != nil {
		return ModifyResult{}, err
	}
	if s.modifier == nil {
		return ModifyResult{}, &GatewayError{Err: ErrAssistantUnavailable}
	}

	modified, err := s.modifier.ModifyCode(ctx, req.Code, req.Instruction)
	if err != nil {
		s.logger.Warn("code assistant failed", "level", req.LevelID, "error", err)
		return ModifyResult{}, &GatewayError{Err: err}
	}

	report := s.Grade(ctx, execution.Submission{
		LevelID:     req.LevelID,
		Code:        modified,
		Instruction: req.Instruction,
		Testing:     req.Testing,
	}, execution.OriginAssist)

	outcome, err := outcomeFrom(report)
	if err != nil {
		return ModifyResult{ModifiedCode: modified}, err
	}
	return ModifyResult{ModifiedCode: modified, Outcome: outcome}, nil
}

// Grade runs one submission and classifies it. Failures that prevent a
// verdict, such as an unknown level or a saturated pool, are reported in
// RunReport.Err; a child that could not be launched still yields an
// execution-error verdict.
func (s *Service) Grade(ctx context.Context, sub execution.Submission, origin execution.Origin) execution.RunReport {
	if sub.ID == "" {
		sub.ID = s.newID()
	}
	report := execution.RunReport{Submission: sub, Origin: origin}

	levelNum, err := execution.ParseLevelID(sub.LevelID)
	if err != nil {
		report.Err = err
		return report
	}

	testing := sub.Testing
	if testing == "" {
		lvl, err := s.levels.Load(ctx, levelNum)
		if err != nil {
			report.Err = fmt.Errorf("load level %d: %w", levelNum, err)
			return report
		}
		testing = lvl.Testing
	}

	unit := execution.Unit{
		ID:      sub.ID,
		Code:    sub.Code,
		Testing: testing,
		Limits: execution.RunLimits{
			TimeLimit:        s.timeoutFor(origin),
			MemoryLimitBytes: s.cfg.MemoryLimitBytes,
		},
	}

	result, runErr := s.runner.Run(ctx, unit)
	if runErr != nil && !errors.Is(runErr, execution.ErrLaunch) {
		report.Err = fmt.Errorf("run submission %s: %w", sub.ID, runErr)
		s.logger.Warn("run aborted", "submission", sub.ID, "level", sub.LevelID, "error", runErr)
		return report
	}

	report.Result = result
	report.Verdict = execution.Classify(result, runErr, sub.LevelID)

	s.logger.Info("submission graded",
		"submission", sub.ID,
		"level", sub.LevelID,
		"origin", origin,
		"verdict", report.Verdict.Kind,
	)

	s.record(ctx, levelNum, report)
	s.publish(ctx, report)
	return report
}

// Attempts returns the most recent attempts for a level, newest first.
func (s *Service) Attempts(ctx context.Context, levelID string, limit int) ([]ports.Attempt, error) {
	n, err := execution.ParseLevelID(levelID)
	if err != nil {
		return nil, err
	}
	if s.attempts == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	attempts, err := s.attempts.Recent(ctx, n, limit)
	if err != nil {
		return nil, fmt.Errorf("load attempts for level %d: %w", n, err)
	}
	return attempts, nil
}

// Close releases the runner and the optional sinks.
func (s *Service) Close() error {
	var errs []error
	if err := s.runner.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close runner: %w", err))
	}
	if s.attempts != nil {
		if err := s.attempts.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close attempt store: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) timeoutFor(origin execution.Origin) time.Duration {
	if origin == execution.OriginAssist {
		return s.cfg.AssistTimeout
	}
	return s.cfg.RunTimeout
}

func (s *Service) record(ctx context.Context, levelNum int, report execution.RunReport) {
	if s.attempts == nil {
		return
	}

	attempt := ports.Attempt{
		SubmissionID: report.Submission.ID,
		LevelID:      levelNum,
		Origin:       report.Origin,
		Verdict:      report.Verdict.Kind,
		CreatedAt:    time.Now().UTC(),
	}
	if report.Result != nil {
		attempt.ExitCode = report.Result.ExitCode
		attempt.Duration = report.Result.Duration
	}

	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Warn("record attempt", "submission", attempt.SubmissionID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, report execution.RunReport) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRunReport(ctx, report); err != nil {
		s.logger.Warn("publish run report", "submission", report.Submission.ID, "error", err)
	}
}

func outcomeFrom(report execution.RunReport) (Outcome, error) {
	if report.Err != nil {
		return Outcome{}, report.Err
	}
	return Outcome{
		SubmissionID: report.Submission.ID,
		LevelID:      report.Submission.LevelID,
		Verdict:      report.Verdict,
		Result:       report.Result,
	}, nil
}

