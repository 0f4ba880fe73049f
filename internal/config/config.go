// Package config loads runtime settings from a .env file and the
// environment. Command-line flags are applied on top by cmd/mise.
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

	"github.com/hammamikhairi/mise/internal/logger"
)

// Environment variable names.
const (
	EnvRecipesDir    = "MISE_RECIPES_DIR"
	EnvLogFile       = "MISE_LOG_FILE"
	EnvLogLevel      = "MISE_LOG_LEVEL"
	EnvTick          = "MISE_TICK"
	EnvSound         = "MISE_SOUND"
	EnvWatchInterval = "MISE_WATCH_INTERVAL"
)

// Defaults.
const (
	DefaultLogFile       = ".mise-logs/mise.log"
	DefaultTickInterval  = time.Second
	DefaultWatchInterval = time.Minute
)

// Config holds the resolved settings.
type Config struct {
	RecipesDir    string
	LogFile       string
	LogLevel      logger.Level
	TickInterval  time.Duration
	Sound         bool
	WatchInterval time.Duration

	// Warnings lists values that were present but unusable and were
	// replaced by their default.
	Warnings []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogFile:       DefaultLogFile,
		LogLevel:      logger.LevelNormal,
		TickInterval:  DefaultTickInterval,
		Sound:         true,
		WatchInterval: DefaultWatchInterval,
	}
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables already set, then
// resolves the configuration. A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Default(), fmt.Errorf("loading env file: %w", err)
	}
	return FromLookup(os.LookupEnv), nil
}

// FromLookup resolves the configuration from a lookup function such as
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) Config {
	c := Default()

	if v, ok := lookup(EnvRecipesDir); ok {
		c.RecipesDir = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogFile); ok && strings.TrimSpace(v) != "" {
		c.LogFile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		level, err := logger.ParseLevel(v)
		if err != nil {
			c.warn(EnvLogLevel, v, err)
		} else {
			c.LogLevel = level
		}
	}
	if v, ok := lookup(EnvTick); ok {
		c.TickInterval = c.duration(EnvTick, v, c.TickInterval)
	}
	if v, ok := lookup(EnvWatchInterval); ok {
		c.WatchInterval = c.duration(EnvWatchInterval, v, c.WatchInterval)
	}
	if v, ok := lookup(EnvSound); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			c.warn(EnvSound, v, err)
		} else {
			c.Sound = b
		}
	}
	return c
}

func (c *Config) duration(key, v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		c.warn(key, v, err)
		return def
	}
	if d <= 0 {
		c.warn(key, v, errors.New("must be positive"))
		return def
	}
	return d
}

func (c *Config) warn(key, v string, err error) {
	c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q ignored: %v", key, v, err))
}
