// Package config provides configuration loading and validation for availog.
package config

import (
	"regexp"
	"time"

	"github.com/ccollicutt/availog/pkg/archive"
	"github.com/ccollicutt/availog/pkg/subject"
	"github.com/ccollicutt/availog/pkg/timeperiod"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogFile is the current, not yet rotated, log.
	LogFile string `yaml:"log_file"`

	// LogArchivePath is the directory holding rotated archives.
	LogArchivePath string `yaml:"log_archive_path"`

	// LogRotationMethod is n, h, d, w or m (or the full names).
	LogRotationMethod string `yaml:"log_rotation_method"`

	// Archives optionally lists archive files or globs explicitly. When
	// set, rotation naming is not used to find archives.
	Archives []string `yaml:"archives,omitempty"`

	TimestampFormat TimestampConfig `yaml:"timestamp_format"`

	Subjects []SubjectConfig `yaml:"subjects,omitempty"`

	// Hosts is shorthand for host-only subjects.
	Hosts []string `yaml:"hosts,omitempty"`

	Policy PolicyConfig `yaml:"policy"`

	// Timeperiods maps a name to weekday -> "HH:MM-HH:MM[,...]".
	Timeperiods map[string]map[string]string `yaml:"timeperiods,omitempty"`

	// ReportTimeperiod selects one of Timeperiods. Empty means 24x7.
	ReportTimeperiod string `yaml:"report_timeperiod,omitempty"`

	// Timezone is an IANA zone name for calendar boundaries.
	Timezone string `yaml:"timezone,omitempty"`

	// StatusFile is a YAML live-status snapshot.
	StatusFile string `yaml:"status_file,omitempty"`

	// Threshold is the availability percentage below which a subject is
	// reported as in breach.
	Threshold float64 `yaml:"threshold,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// Populated during validation.
	location   *time.Location
	rotation   archive.Method
	timeperiod *timeperiod.Weekly
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Rotation returns the archive rotation scheme.
func (c *Config) Rotation() archive.Rotation {
	return archive.Rotation{Method: c.rotation, Location: c.Location()}
}

// Locator maps archive identifiers to paths.
func (c *Config) Locator() archive.Locator {
	return archive.Locator{
		LogFile:    c.LogFile,
		ArchiveDir: c.LogArchivePath,
		Rotation:   c.Rotation(),
	}
}

// Timeperiod returns the report timeperiod, or nil for 24x7.
func (c *Config) Timeperiod() *timeperiod.Weekly {
	return c.timeperiod
}

// AllSubjects returns Subjects followed by one host subject per Hosts entry.
func (c *Config) AllSubjects() []SubjectConfig {
	out := make([]SubjectConfig, 0, len(c.Subjects)+len(c.Hosts))
	out = append(out, c.Subjects...)
	for _, h := range c.Hosts {
		out = append(out, SubjectConfig{Host: h})
	}
	return out
}

// TimestampConfig defines how to extract timestamps from log lines.
type TimestampConfig struct {
	// Pattern is a regex that captures the timestamp portion of a log line.
	// Must contain at least one capture group.
	Pattern string `yaml:"pattern"`

	// Layout is a Go time layout, or "unix" for epoch seconds.
	Layout string `yaml:"layout"`

	// compiledPattern is the pre-compiled regex (populated during validation).
	compiledPattern *regexp.Regexp
}

// CompiledPattern returns the pre-compiled regex pattern.
func (t *TimestampConfig) CompiledPattern() *regexp.Regexp {
	return t.compiledPattern
}

// SubjectConfig names a host, or a service when Service is set.
type SubjectConfig struct {
	Host    string `yaml:"host"`
	Service string `yaml:"service,omitempty"`
}

// Kind returns the subject kind.
func (s SubjectConfig) Kind() subject.Kind {
	if s.Service != "" {
		return subject.KindService
	}
	return subject.KindHost
}

// PolicyConfig holds the reconstruction assumptions.
type PolicyConfig struct {
	AssumeInitialStates          bool `yaml:"assume_initial_states"`
	AssumeStateRetention         bool `yaml:"assume_state_retention"`
	AssumeStatesDuringNotRunning bool `yaml:"assume_states_during_not_running"`
	IncludeSoftStates            bool `yaml:"include_soft_states"`

	// InitialAssumedHostState is unspecified, current, up, down or unreachable.
	InitialAssumedHostState string `yaml:"initial_assumed_host_state"`

	// InitialAssumedServiceState is unspecified, current, ok, warning,
	// unknown or critical.
	InitialAssumedServiceState string `yaml:"initial_assumed_service_state"`

	BacktrackArchives     int  `yaml:"backtrack_archives"`
	ShowScheduledDowntime bool `yaml:"show_scheduled_downtime"`

	initialHost    subject.State
	initialService subject.State
}

// InitialHostState returns the parsed initial host state. NoData means
// unspecified.
func (p *PolicyConfig) InitialHostState() subject.State {
	return p.initialHost
}

// InitialServiceState returns the parsed initial service state.
func (p *PolicyConfig) InitialServiceState() subject.State {
	return p.initialService
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnBreach fires only when a subject is below threshold (default).
	WebhookTriggerOnBreach WebhookTrigger = "on_breach"
	// WebhookTriggerAlways fires after every report.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_breach" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
