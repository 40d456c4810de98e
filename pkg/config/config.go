package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/availog/pkg/archive"
	"github.com/ccollicutt/availog/pkg/subject"
	"github.com/ccollicutt/availog/pkg/timeperiod"
)

// ErrNoSubjects is returned when neither subjects nor hosts are configured.
var ErrNoSubjects = errors.New("at least one subject or host is required")

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and compiles derived values:
// the timestamp regex, time zone, rotation method, timeperiod and the
// initial assumed states.
func Validate(cfg *Config) error {
	if cfg.LogFile == "" && len(cfg.Archives) == 0 {
		return errors.New("log_file: required unless archives are listed")
	}

	method, err := archive.ParseMethod(cfg.LogRotationMethod)
	if err != nil {
		return fmt.Errorf("log_rotation_method: %w", err)
	}
	cfg.rotation = method

	if method != archive.None && cfg.LogArchivePath == "" && len(cfg.Archives) == 0 {
		return errors.New("log_archive_path: required when logs are rotated")
	}

	if err := validateTimestampFormat(&cfg.TimestampFormat); err != nil {
		return fmt.Errorf("timestamp_format: %w", err)
	}

	if err := validateSubjects(cfg); err != nil {
		return err
	}

	cfg.location = time.Local
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
		cfg.location = loc
	}

	if err := validatePolicy(&cfg.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if err := validateTimeperiods(cfg); err != nil {
		return err
	}

	if cfg.Threshold < 0 || cfg.Threshold > 100 {
		return fmt.Errorf("threshold: %.2f is not a percentage", cfg.Threshold)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateTimestampFormat(tf *TimestampConfig) error {
	if tf.Pattern == "" {
		return errors.New("pattern is required")
	}

	re, err := regexp.Compile(tf.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	if re.NumSubexp() < 1 {
		return errors.New("pattern must have at least one capture group for the timestamp")
	}

	tf.compiledPattern = re

	if tf.Layout == "" {
		return errors.New("layout is required")
	}

	return nil
}

func validateSubjects(cfg *Config) error {
	if len(cfg.Subjects) == 0 && len(cfg.Hosts) == 0 {
		return fmt.Errorf("subjects: %w", ErrNoSubjects)
	}
	for i, s := range cfg.Subjects {
		if strings.TrimSpace(s.Host) == "" {
			return fmt.Errorf("subjects[%d]: host is required", i)
		}
	}
	for i, h := range cfg.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("hosts[%d]: empty host name", i)
		}
	}
	return nil
}

func validatePolicy(p *PolicyConfig) error {
	var err error
	if p.initialHost, err = parseInitialState(subject.KindHost, p.InitialAssumedHostState); err != nil {
		return fmt.Errorf("initial_assumed_host_state: %w", err)
	}
	if p.initialService, err = parseInitialState(subject.KindService, p.InitialAssumedServiceState); err != nil {
		return fmt.Errorf("initial_assumed_service_state: %w", err)
	}
	if p.BacktrackArchives < 0 {
		return fmt.Errorf("backtrack_archives: must be >= 0, got %d", p.BacktrackArchives)
	}
	return nil
}

// parseInitialState accepts "unspecified" (or empty), "current" and the
// concrete states of the given kind.
func parseInitialState(kind subject.Kind, s string) (subject.State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified":
		return subject.NoData, nil
	case "current":
		return subject.Current, nil
	}
	st, ok := subject.ParseState(kind, s)
	if !ok || strings.EqualFold(strings.TrimSpace(s), "RECOVERY") {
		return subject.NoData, fmt.Errorf("invalid %s state %q", kind, s)
	}
	return st, nil
}

func validateTimeperiods(cfg *Config) error {
	names := make([]string, 0, len(cfg.Timeperiods))
	for name := range cfg.Timeperiods {
		names = append(names, name)
	}
	sort.Strings(names)

	parsed := make(map[string]*timeperiod.Weekly, len(names))
	for _, name := range names {
		tp, err := timeperiod.Parse(name, cfg.Timeperiods[name], cfg.Location())
		if err != nil {
			return fmt.Errorf("timeperiods.%s: %w", name, err)
		}
		parsed[name] = tp
	}

	cfg.timeperiod = nil
	if cfg.ReportTimeperiod != "" {
		tp, ok := parsed[cfg.ReportTimeperiod]
		if !ok {
			return fmt.Errorf("report_timeperiod: %q is not defined in timeperiods", cfg.ReportTimeperiod)
		}
		cfg.timeperiod = tp
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnBreach
	case WebhookTriggerOnBreach, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_breach, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
