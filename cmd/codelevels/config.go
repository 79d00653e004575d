package main

import (
	"fmt"
	"os"
	"time"

	"codelevels/internal/config"
	"codelevels/internal/logging"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultLevelsDir         = "levels"
	defaultAssistTimeout     = 10 * time.Second
	defaultRecordingIdleTTL  = 10 * time.Minute
	defaultKafkaResultsTopic = "verdicts"
	defaultAnthropicModel    = "claude-3-5-sonnet-20240620"
)

type appConfig struct {
	HTTPAddr  string
	LevelsDir string

	Runner        config.Runner
	RunTimeout    time.Duration
	AssistTimeout time.Duration

	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	ElevenLabsKey    string
	RecordingIdleTTL time.Duration

	AttemptsDB string

	KafkaBrokers []string
	ResultsTopic string

	Log logging.Options
}

func loadAppConfig() (appConfig, error) {
	anthropicKey, err := config.Secret(config.ParseFeature(os.Getenv("ASSISTANT")), "ANTHROPIC_API_KEY")
	if err != nil {
		return appConfig{}, fmt.Errorf("assistant: %w", err)
	}
	elevenLabsKey, err := config.Secret(config.ParseFeature(os.Getenv("VOICE_INPUT")), "ELEVENLABS_API_KEY")
	if err != nil {
		return appConfig{}, fmt.Errorf("voice input: %w", err)
	}

	return appConfig{
		HTTPAddr:  config.EnvOrDefault("HTTP_ADDR", defaultHTTPAddr),
		LevelsDir: config.EnvOrDefault("LEVELS_DIR", defaultLevelsDir),

		Runner:        config.RunnerFromEnv(),
		RunTimeout:    config.ParseDuration(os.Getenv("RUN_TIMEOUT"), 0),
		AssistTimeout: config.ParseDuration(os.Getenv("ASSIST_TIMEOUT"), defaultAssistTimeout),

		AnthropicKey:     anthropicKey,
		AnthropicModel:   config.EnvOrDefault("ANTHROPIC_MODEL", defaultAnthropicModel),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),

		ElevenLabsKey:    elevenLabsKey,
		RecordingIdleTTL: config.ParseDuration(os.Getenv("RECORDING_IDLE_TTL"), defaultRecordingIdleTTL),

		AttemptsDB: os.Getenv("ATTEMPTS_DB"),

		KafkaBrokers: config.ParseList(os.Getenv("KAFKA_BROKERS")),
		ResultsTopic: config.EnvOrDefault("KAFKA_RESULTS_TOPIC", defaultKafkaResultsTopic),

		Log: logging.Options{
			Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
			File:    os.Getenv("LOG_FILE"),
			Journal: logging.ParseJournalMode(os.Getenv("LOG_JOURNAL")),
		},
	}, nil
}
