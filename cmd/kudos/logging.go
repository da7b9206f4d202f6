package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"kudos/internal/config"
)

const logLevelEnvKey = "KUDOS_LOG_LEVEL"

type levelSource string

const (
	levelFromFlag    levelSource = "flag"
	levelFromEnv     levelSource = "env"
	levelFromConfig  levelSource = "config"
	levelFromDefault levelSource = "default"
)

// configureLoggerForCLI installs the default logger. An invalid flag is an
// error; an invalid env or config value falls back to the default level and
// yields a warning for stderr.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(raw)
	if err == nil {
		slog.SetDefault(newLogger(level))
		return "", nil
	}

	fallback, _ := parseLogLevel(config.DefaultLogLevel)
	switch source {
	case levelFromFlag:
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	case levelFromEnv:
		slog.SetDefault(newLogger(fallback))
		return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
	case levelFromConfig:
		slog.SetDefault(newLogger(fallback))
		return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel), nil
	default:
		slog.SetDefault(newLogger(fallback))
		return "", nil
	}
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	switch {
	case strings.TrimSpace(flagLevel) != "":
		return flagLevel, levelFromFlag
	case strings.TrimSpace(envLevel) != "":
		return envLevel, levelFromEnv
	case strings.TrimSpace(configLevel) != "":
		return configLevel, levelFromConfig
	default:
		return "", levelFromDefault
	}
}

// parseLogLevel accepts slog level names, the "warning" alias and numeric
// levels. Empty input means debug.
func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelDebug, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelDebug, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("app", "kudos")
}
