// Command codelevels serves the interactive coding lessons over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"codelevels/internal/app/lessons"
	"codelevels/internal/app/recording"
	"codelevels/internal/config"
	"codelevels/internal/infra/assistant"
	"codelevels/internal/infra/elevenlabs"
	"codelevels/internal/infra/httpapi"
	kafkainfra "codelevels/internal/infra/kafka"
	"codelevels/internal/infra/levelfs"
	"codelevels/internal/infra/sqlite"
	"codelevels/internal/logging"
	"codelevels/internal/ports"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "codelevels: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadAppConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "codelevels: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "codelevels: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("codelevels stopped", "error", err)
		stop()
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, logger *slog.Logger) error {
	var pending config.Closers
	defer func() {
		if err := pending.Close(); err != nil {
			logger.Warn("failed to release startup resources", "error", err)
		}
	}()

	runner, err := cfg.Runner.Build()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	pending.Add(runner)

	var modifier ports.CodeModifier
	if cfg.AnthropicKey != "" {
		m, err := assistant.New(assistant.Config{
			APIKey:  cfg.AnthropicKey,
			Model:   cfg.AnthropicModel,
			BaseURL: cfg.AnthropicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("initialize assistant: %w", err)
		}
		modifier = m
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, code modification disabled")
	}

	opts := []lessons.Option{lessons.WithLogger(logger)}

	if cfg.AttemptsDB != "" {
		store, err := sqlite.Open(cfg.AttemptsDB)
		if err != nil {
			return fmt.Errorf("open attempt history: %w", err)
		}
		pending.Add(store)
		opts = append(opts, lessons.WithAttemptStore(store))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.ResultsTopic,
		})
		if err != nil {
			return fmt.Errorf("initialize verdict publisher: %w", err)
		}
		pending.Add(publisher)
		opts = append(opts, lessons.WithPublisher(publisher))
	}

	service := lessons.NewService(levelfs.New(cfg.LevelsDir), runner, modifier, lessons.Config{
		RunTimeout:       cfg.RunTimeout,
		AssistTimeout:    cfg.AssistTimeout,
		MemoryLimitBytes: cfg.Runner.MemoryLimit,
	}, opts...)
	pending.Release()
	defer func() {
		if cerr := service.Close(); cerr != nil {
			logger.Warn("failed to close lesson service", "error", cerr)
		}
	}()

	var recordings httpapi.Recordings
	if cfg.ElevenLabsKey != "" {
		transcriber, err := elevenlabs.New(elevenlabs.Config{APIKey: cfg.ElevenLabsKey})
		if err != nil {
			return fmt.Errorf("initialize transcriber: %w", err)
		}
		manager := recording.NewManager(transcriber, recording.Options{Logger: logger})
		go manager.RunReaper(ctx, cfg.RecordingIdleTTL, 0)
		recordings = manager
	} else {
		logger.Warn("ELEVENLABS_API_KEY not set, voice input disabled")
	}

	logger.Info("starting codelevels",
		"levels_dir", cfg.LevelsDir,
		"runner", cfg.Runner.Backend,
		"max_parallel", cfg.Runner.MaxParallel,
		"attempt_history", cfg.AttemptsDB != "",
		"kafka", len(cfg.KafkaBrokers) > 0,
	)

	server := httpapi.NewServer(service, recordings, httpapi.Config{
		Addr:   cfg.HTTPAddr,
		Logger: logger,
	})
	return server.Serve(ctx)
}
