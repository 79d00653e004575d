package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codelevels/internal/domain/execution"
	"codelevels/internal/ports"
)

const (
	defaultGroupID  = "codelevels-grader"
	defaultMaxBytes = 10 << 20
	defaultMaxWait  = time.Second
)

// Config describes how to consume submissions from a Kafka topic.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration

	// Logger receives a warning for every rejected message. Nil discards.
	Logger *slog.Logger
}

var _ ports.SubmissionProducer = (*Consumer)(nil)

// Consumer reads submission envelopes from a topic. Offsets are committed
// once a message has been decoded; malformed messages are committed and
// skipped so one bad payload cannot stall the group. A "done" envelope ends
// the stream with io.EOF.
type Consumer struct {
	reader   messageReader
	logger   *slog.Logger
	rejected atomic.Int64
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewConsumer validates cfg and opens a group reader.
func NewConsumer(cfg Config) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  orDefault(cfg.GroupID, defaultGroupID),
		MinBytes: max(cfg.MinBytes, 1),
		MaxBytes: orDefault(cfg.MaxBytes, defaultMaxBytes),
		MaxWait:  orDefault(cfg.MaxWait, defaultMaxWait),
	})
	return newConsumer(reader, cfg.Logger), nil
}

func newConsumer(reader messageReader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consumer{reader: reader, logger: logger}
}

// NextSubmission blocks until a valid submission arrives, the stream ends, or
// ctx is done.
func (c *Consumer) NextSubmission(ctx context.Context) (execution.Submission, error) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return execution.Submission{}, err
		}

		sub, decodeErr := decodeSubmissionMessage(msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return execution.Submission{}, fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}

		switch {
		case decodeErr == nil:
			return sub, nil
		case errors.Is(decodeErr, io.EOF):
			return execution.Submission{}, io.EOF
		default:
			c.rejected.Add(1)
			c.logger.Warn("rejected submission message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", decodeErr,
			)
		}
	}
}

// Rejected reports how many malformed messages have been skipped.
func (c *Consumer) Rejected() int64 {
	return c.rejected.Load()
}

// Close releases the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
