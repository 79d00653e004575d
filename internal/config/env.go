// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the given files (".env" when none) into the process
// environment without overriding existing variables. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// EnvOrDefault returns the value of key, or fallback when unset or empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// RequireEnv returns the value of key or an error naming the variable.
func RequireEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

// ParseList splits a comma separated list, dropping blanks.
func ParseList(raw string) []string {
	fields := strings.Split(raw, ",")
	items := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// ParseCount parses a non-negative integer, returning 0 for blank or
// invalid input.
func ParseCount(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// ParsePositive parses a positive integer, returning fallback otherwise.
func ParsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// ParseDuration parses a Go duration, returning fallback for blank, invalid
// or negative input.
func ParseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// ParseBytes parses a byte count, returning 0 for blank or invalid input.
func ParseBytes(raw string) int64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// Feature is a tri-state switch for optional integrations.
type Feature string

const (
	FeatureAuto Feature = "auto"
	FeatureOn   Feature = "on"
	FeatureOff  Feature = "off"
)

// ParseFeature maps on/off/auto (and true/false, 1/0), defaulting to auto.
func ParseFeature(raw string) Feature {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return FeatureOn
	case "off", "false", "0", "no":
		return FeatureOff
	default:
		return FeatureAuto
	}
}

// Secret resolves the secret stored in key for a feature. It returns
// ("", nil) when the feature is off, or auto with the variable unset, and an
// error when the feature is on but the variable is missing.
func Secret(feature Feature, key string) (string, error) {
	switch feature {
	case FeatureOff:
		return "", nil
	case FeatureOn:
		return RequireEnv(key)
	default:
		return strings.TrimSpace(os.Getenv(key)), nil
	}
}
