package syncer

import (
	"fmt"
	"time"

	"github.com/dailyyoga/cachedkv/cron"
)

// Config holds configuration for the sync engine
type Config struct {
	// Name identifies the engine in logs and metric labels
	// default: "cachedkv"
	Name string `mapstructure:"name"`

	// Interval between drain passes
	// default: 1 * time.Second
	Interval time.Duration `mapstructure:"interval"`

	// Schedule is an optional six-field cron spec (seconds first) or a
	// descriptor like "@every 5s". When set it replaces Interval.
	Schedule string `mapstructure:"schedule"`

	// TaskTimeout bounds a single durable store call
	// default: 30 * time.Second
	TaskTimeout time.Duration `mapstructure:"task_timeout"`

	// MaxAttempts is how many times a mutation is tried before it is reported
	// and dropped. 1 disables retries. Only timeouts and connection errors
	// are retried.
	// default: 1
	MaxAttempts int `mapstructure:"max_attempts"`

	// RetryBackoff is the wait before the second attempt, doubled for each further attempt
	// default: 1 * time.Second
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// DefaultConfig returns the default configuration for the sync engine
func DefaultConfig() *Config {
	return &Config{
		Name:         "cachedkv",
		Interval:     time.Second,
		TaskTimeout:  30 * time.Second,
		MaxAttempts:  1,
		RetryBackoff: time.Second,
	}
}

// MergeDefaults merges the default configuration into zero fields
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Interval == 0 {
		c.Interval = defaults.Interval
	}
	if c.TaskTimeout == 0 {
		c.TaskTimeout = defaults.TaskTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaults.RetryBackoff
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrInvalidConfig("name is required")
	}
	if c.Interval <= 0 {
		return ErrInvalidConfig("interval must be positive")
	}
	if c.TaskTimeout <= 0 {
		return ErrInvalidConfig("task_timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidConfig("max_attempts must be at least 1")
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidConfig("retry_backoff cannot be negative")
	}
	if c.Schedule != "" {
		if err := cron.ParseSpec(c.Schedule); err != nil {
			return ErrInvalidConfig(fmt.Sprintf("schedule: %v", err))
		}
	}
	return nil
}
