package ports

import (
	"context"

	"codelevels/internal/domain/execution"
)

// SubmissionProducer provides submissions to grade. NextSubmission returns
// io.EOF once the producer is exhausted.
type SubmissionProducer interface {
	NextSubmission(ctx context.Context) (execution.Submission, error)
}
