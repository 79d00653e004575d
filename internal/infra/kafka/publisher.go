package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

const (
	headerVerdict = "verdict"
	headerLevel   = "level_id"
	headerOrigin  = "origin"
)

var _ ports.RunReportPublisher = (*Publisher)(nil)

// PublisherConfig configures the verdict publisher.
type PublisherConfig struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Zero keeps the kafka-go default.
	WriteTimeout time.Duration
}

// Publisher emits one verdict event per graded attempt. Events are keyed by
// submission ID and carry the verdict, level and origin as headers so
// consumers can route without decoding the body.
type Publisher struct {
	writer    messageWriter
	now       func() time.Time
	closeOnce sync.Once
	closeErr  error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher validates cfg and opens a writer for the verdict topic.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	return newPublisher(&kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           cfg.WriteTimeout,
	}), nil
}

func newPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// PublishRunReport writes report as a JSON verdict event.
func (p *Publisher) PublishRunReport(ctx context.Context, report execution.RunReport) error {
	payload, err := encodeRunReport(report)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(report.Submission.ID),
		Value: payload,
		Time:  p.now(),
		Headers: []kafkago.Header{
			{Key: headerVerdict, Value: []byte(verdictLabel(report))},
			{Key: headerLevel, Value: []byte(report.Submission.LevelID)},
			{Key: headerOrigin, Value: []byte(report.Origin)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close flushes and releases the writer. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.writer.Close()
	})
	return p.closeErr
}

// verdictLabel names the outcome, using "aborted" when grading itself failed.
func verdictLabel(report execution.RunReport) string {
	if report.Err != nil {
		return "aborted"
	}
	return string(report.Verdict.Kind)
}
