// Command levelgrader grades learner submissions in batch. Submissions come
// from a Kafka topic, or from the starter code of every level on disk when
// GRADER_SOURCE=levels.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"codelevels/internal/app/grader"
	"codelevels/internal/app/lessons"
	"codelevels/internal/app/producer"
	"codelevels/internal/config"
	"codelevels/internal/domain/execution"
	kafkainfra "codelevels/internal/infra/kafka"
	"codelevels/internal/infra/levelfs"
	"codelevels/internal/infra/sqlite"
	"codelevels/internal/logging"
	"codelevels/internal/ports"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "levelgrader: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadGraderConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "levelgrader: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "levelgrader: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("grading stopped", "error", err)
		stop()
		closeLog()
		os.Exit(1)
	}
	// A broken level shows up as an execution error on its own starter code.
	if cfg.Source == sourceLevels && summary.Errored+summary.Aborted > 0 {
		stop()
		closeLog()
		os.Exit(2)
	}
}

func run(ctx context.Context, cfg graderConfig, logger *slog.Logger) (*grader.Summary, error) {
	summary := &grader.Summary{}

	var pending config.Closers
	defer func() {
		if err := pending.Close(); err != nil {
			logger.Warn("failed to release startup resources", "error", err)
		}
	}()

	runner, err := cfg.Runner.Build()
	if err != nil {
		return summary, fmt.Errorf("initialize runner: %w", err)
	}
	pending.Add(runner)

	store := levelfs.New(cfg.LevelsDir)
	opts := []lessons.Option{lessons.WithLogger(logger)}

	if cfg.AttemptsDB != "" {
		attempts, err := sqlite.Open(cfg.AttemptsDB)
		if err != nil {
			return summary, fmt.Errorf("open attempt history: %w", err)
		}
		pending.Add(attempts)
		opts = append(opts, lessons.WithAttemptStore(attempts))
	}

	var source ports.SubmissionProducer
	switch cfg.Source {
	case sourceLevels:
		levels, err := producer.FromLevels(ctx, store)
		if err != nil {
			return summary, fmt.Errorf("enumerate levels: %w", err)
		}
		source = levels
	default:
		publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.ResultsTopic,
		})
		if err != nil {
			return summary, fmt.Errorf("initialize verdict publisher: %w", err)
		}
		pending.Add(publisher)
		opts = append(opts, lessons.WithPublisher(publisher))

		consumer, err := kafkainfra.NewConsumer(kafkainfra.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
			Logger:  logger,
		})
		if err != nil {
			return summary, fmt.Errorf("initialize submission consumer: %w", err)
		}
		defer func() {
			logger.Info("submission stream closed", "rejected", consumer.Rejected())
			consumer.Close()
		}()
		source = consumer
	}

	service := lessons.NewService(store, runner, nil, lessons.Config{
		RunTimeout:       cfg.RunTimeout,
		MemoryLimitBytes: cfg.Runner.MemoryLimit,
	}, opts...)
	pending.Release()
	defer func() {
		if cerr := service.Close(); cerr != nil {
			logger.Warn("failed to close lesson service", "error", cerr)
		}
	}()

	logger.Info("starting grader",
		"source", cfg.Source,
		"levels_dir", cfg.LevelsDir,
		"runner", cfg.Runner.Backend,
		"max_parallel", cfg.Runner.MaxParallel,
		"expected", cfg.Expected,
	)

	err = grader.NewService(service).ExecuteFromProducer(ctx, source, cfg.Expected, cfg.Runner.MaxParallel, func(report execution.RunReport) {
		summary.Add(report)
		logReport(logger, report)
	})

	logger.Info("grading finished",
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
		"aborted", summary.Aborted,
	)
	return summary, err
}

func logReport(logger *slog.Logger, report execution.RunReport) {
	attrs := []any{
		"submission_id", report.Submission.ID,
		"level_id", report.Submission.LevelID,
		"verdict", string(report.Verdict.Kind),
	}
	if report.Verdict.NextLevelID != "" {
		attrs = append(attrs, "next_level_id", report.Verdict.NextLevelID)
	}
	if report.Err != nil {
		logger.Warn("submission errored", append(attrs, "error", report.Err)...)
		return
	}
	logger.Info("submission graded", attrs...)
}
