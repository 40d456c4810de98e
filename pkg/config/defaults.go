package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultWebhookTimeout    = 10 * time.Second
	DefaultTimestampPattern  = `^\[(\d+)\]`
	DefaultTimestampLayout   = "unix"
	DefaultRotationMethod    = "d"
	DefaultBacktrackArchives = 2
	DefaultThreshold         = 99.0
)

// Environment variable names.
const (
	EnvLogFile        = "AVAILOG_LOG_FILE"
	EnvLogArchivePath = "AVAILOG_LOG_ARCHIVE_PATH"
)

// DefaultConfig returns a configuration with the classic report defaults.
func DefaultConfig() *Config {
	return &Config{
		LogRotationMethod: DefaultRotationMethod,
		TimestampFormat: TimestampConfig{
			Pattern: DefaultTimestampPattern,
			Layout:  DefaultTimestampLayout,
		},
		Policy: PolicyConfig{
			AssumeInitialStates:          true,
			AssumeStateRetention:         true,
			AssumeStatesDuringNotRunning: true,
			IncludeSoftStates:            false,
			BacktrackArchives:            DefaultBacktrackArchives,
			ShowScheduledDowntime:        true,
		},
		Threshold: DefaultThreshold,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvLogArchivePath); v != "" {
		c.LogArchivePath = v
	}
}
