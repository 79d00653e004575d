// Package grader grades streams of submissions with bounded parallelism.
package grader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

// Grader grades a single submission.
type Grader interface {
	Grade(ctx context.Context, sub execution.Submission, origin execution.Origin) execution.RunReport
}

// Service pulls submissions from a producer and grades them.
type Service struct {
	grader Grader
	origin execution.Origin
}

// NewService constructs a Service that grades with the provided grader.
func NewService(grader Grader) *Service {
	return &Service{grader: grader, origin: execution.OriginBatch}
}

// ExecuteFromProducer pulls submissions from the supplied producer and grades them with bounded parallelism.
//
// If maxSubmissions is greater than zero grading stops after that many
// submissions. Otherwise it keeps consuming until the context is cancelled
// or the producer signals completion via io.EOF.
//
// When onReport is provided it is invoked after every graded submission.
func (s *Service) ExecuteFromProducer(
	ctx context.Context,
	producer ports.SubmissionProducer,
	maxSubmissions int,
	maxParallel int,
	onReport func(execution.RunReport),
) error {
	if maxParallel <= 0 {
		maxParallel = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallel)
	processed := 0

	finish := func(err error) error {
		wg.Wait()
		return err
	}

	for {
		if maxSubmissions > 0 && processed >= maxSubmissions {
			return finish(nil)
		}

		sub, err := producer.NextSubmission(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return finish(nil)
			}

			return finish(fmt.Errorf("get next submission: %w", err))
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return finish(nil)
		}
		wg.Add(1)
		processed++
		go func(sub execution.Submission) {
			defer wg.Done()
			defer func() { <-sem }()

			report := s.grader.Grade(ctx, sub, s.origin)
			if onReport != nil {
				onReport(report)
			}
		}(sub)
	}
}

// Summary tallies graded reports by verdict.
type Summary struct {
	mu      sync.Mutex
	Total   int
	Passed  int
	Failed  int
	Errored int
	Aborted int
}

// Add records one report. It is safe for concurrent use.
func (s *Summary) Add(report execution.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Total++
	switch {
	case report.Err != nil:
		s.Aborted++
	case report.Verdict.Kind == execution.VerdictSuccess:
		s.Passed++
	case report.Verdict.Kind == execution.VerdictTestFailure:
		s.Failed++
	default:
		s.Errored++
	}
}
