// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BotToken is the shared secret the delivery channel sends in X-Bot-Token.
	BotToken string `koanf:"bot_token"`

	// DatabaseURL locates the SQLite database: a path, a file: DSN or sqlite:///path.
	DatabaseURL string `koanf:"database_url"`

	// PageSize is the number of teams per chooser page.
	PageSize int `koanf:"page_size"`

	// WorkerCount sets the number of partition workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds each worker's queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many update ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// SessionShards configures the number of shards in the session store.
	SessionShards int `koanf:"session_shards"`

	// RequestTimeoutMS bounds how long a webhook call waits for processing.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		DatabaseURL:      "file:evalbot.db",
		PageSize:         10,
		WorkerCount:      runtime.NumCPU() * 2,
		QueueSize:        256,
		DedupeSize:       50_000,
		SessionShards:    32,
		RequestTimeoutMS: 5_000,
	}
}

// RequestTimeout is RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks the settings every command needs. An unknown log_level
// is not an error; the logger falls back to info.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url must not be empty", ErrInvalidConfig)
	case c.PageSize <= 0:
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 0:
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.SessionShards <= 0:
		return fmt.Errorf("%w: session_shards must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

// ValidateServe additionally requires the webhook secret.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("%w: bot_token must not be empty", ErrInvalidConfig)
	}
	return nil
}
