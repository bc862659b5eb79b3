// Package config loads process settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/jason-s-yu/setdealer/internal/game"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads the given .env files (".env" when none are given) into the environment.
// Variables already set win. A missing default .env is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(files...)
}

// ConfigureLogging sets the standard logrus logger from LOG_LEVEL (default "info"),
// LOG_FORMAT ("text" or "json") and LOG_FILE, which appends to a file instead of stderr.
func ConfigureLogging() {
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.Warnf("cannot open LOG_FILE, logging to stderr: %v", err)
		} else {
			logrus.SetOutput(f)
		}
	}
	level, err := logrus.ParseLevel(GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL, using info: %v", err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if strings.EqualFold(GetEnv("LOG_FORMAT", "text"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// GameConfig builds a game.Config from the defaults overridden by SET_* variables.
func GameConfig() (game.Config, error) {
	cfg := game.DefaultConfig()

	ints := []struct {
		key string
		dst *int
	}{
		{"SET_PLAYERS", &cfg.Players},
		{"SET_RANDOM_PLAYERS", &cfg.RandomPlayers},
		{"SET_DECK_SIZE", &cfg.DeckSize},
		{"SET_TABLE_SIZE", &cfg.TableSize},
		{"SET_FEATURE_SIZE", &cfg.Rules.FeatureSize},
		{"SET_FEATURE_COUNT", &cfg.Rules.FeatureCount},
	}
	for _, v := range ints {
		if err := readInt(v.key, v.dst); err != nil {
			return cfg, err
		}
	}

	millis := []struct {
		key string
		dst *int64
	}{
		{"SET_TURN_TIMEOUT_MS", &cfg.TurnTimeoutMillis},
		{"SET_TURN_WARNING_MS", &cfg.TurnTimeoutWarningMillis},
		{"SET_POINT_FREEZE_MS", &cfg.PointFreezeMillis},
		{"SET_PENALTY_FREEZE_MS", &cfg.PenaltyFreezeMillis},
		{"SET_TABLE_DELAY_MS", &cfg.TableDelayMillis},
	}
	for _, v := range millis {
		if err := readInt64(v.key, v.dst); err != nil {
			return cfg, err
		}
	}

	if s := os.Getenv("SET_HINTS"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return cfg, fmt.Errorf("SET_HINTS: %w", err)
		}
		cfg.Hints = b
	}

	// a custom feature layout defaults to its full deck
	if os.Getenv("SET_DECK_SIZE") == "" {
		cfg.DeckSize = cfg.Rules.DeckSize()
	}
	return cfg, cfg.Validate()
}

// GetEnv returns the value of key, or def when it is unset or empty.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func readInt(key string, dst *int) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func readInt64(key string, dst *int64) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

// GetEnvInt returns key parsed as an int, or def when it is unset or malformed.
func GetEnvInt(key string, def int) int {
	v := def
	if err := readInt(key, &v); err != nil {
		logrus.Warnf("ignoring %v", err)
		return def
	}
	return v
}
