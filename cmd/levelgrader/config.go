package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codelevels/internal/config"
	"codelevels/internal/logging"
)

const (
	sourceKafka  = "kafka"
	sourceLevels = "levels"

	defaultBrokers      = "localhost:9092"
	defaultTopic        = "submissions"
	defaultResultsTopic = "verdicts"
	defaultLevelsDir    = "levels"
)

type graderConfig struct {
	Source    string
	LevelsDir string

	Brokers      []string
	Topic        string
	GroupID      string
	ResultsTopic string

	Expected   int
	Runner     config.Runner
	RunTimeout time.Duration
	AttemptsDB string

	Log logging.Options
}

func loadGraderConfig() (graderConfig, error) {
	source := strings.ToLower(config.EnvOrDefault("GRADER_SOURCE", sourceKafka))
	if source != sourceKafka && source != sourceLevels {
		return graderConfig{}, fmt.Errorf("unknown GRADER_SOURCE %q", source)
	}

	brokers := config.ParseList(config.EnvOrDefault("KAFKA_BROKERS", defaultBrokers))
	if source == sourceKafka && len(brokers) == 0 {
		return graderConfig{}, fmt.Errorf("KAFKA_BROKERS is empty")
	}

	return graderConfig{
		Source:    source,
		LevelsDir: config.EnvOrDefault("LEVELS_DIR", defaultLevelsDir),

		Brokers:      brokers,
		Topic:        config.EnvOrDefault("KAFKA_TOPIC", defaultTopic),
		GroupID:      os.Getenv("KAFKA_GROUP_ID"),
		ResultsTopic: config.EnvOrDefault("KAFKA_RESULTS_TOPIC", defaultResultsTopic),

		Expected:   config.ParseCount(os.Getenv("SUBMISSIONS_EXPECTED")),
		Runner:     config.RunnerFromEnv(),
		RunTimeout: config.ParseDuration(os.Getenv("RUN_TIMEOUT"), 0),
		AttemptsDB: os.Getenv("ATTEMPTS_DB"),

		Log: logging.Options{
			Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
			File:    os.Getenv("LOG_FILE"),
			Journal: logging.ParseJournalMode(os.Getenv("LOG_JOURNAL")),
		},
	}, nil
}
