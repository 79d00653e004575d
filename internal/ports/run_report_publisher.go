package ports

import (
	"context"

	"codelevels/internal/domain/execution"
)

// RunReportPublisher publishes graded run reports to an external system.
type RunReportPublisher interface {
	PublishRunReport(ctx context.Context, report execution.RunReport) error
	Close() error
}
