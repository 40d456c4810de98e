package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/availog/pkg/availability"
	"github.com/ccollicutt/availog/pkg/config"
	"github.com/ccollicutt/availog/pkg/ingest"
	"github.com/ccollicutt/availog/pkg/output"
	"github.com/ccollicutt/availog/pkg/parser"
	"github.com/ccollicutt/availog/pkg/status"
	"github.com/ccollicutt/availog/pkg/subject"
	"github.com/ccollicutt/availog/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// errNoSubjectsSelected is returned when --host/--service filter out every subject.
var errNoSubjectsSelected = errors.New("no configured subject matches the host/service filter")

// ReportOptions holds command-line options for the report command.
type ReportOptions struct {
	WindowOptions

	Output      string
	Hosts       []string
	Services    []string
	StatusFile  string
	Concurrency int
	Verbose     bool
	Quiet       bool
	Debug       bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report <config-file>",
		Short: "Report host and service availability",
		Long: `Reconstruct host and service availability from monitoring logs.

For every configured subject the report shows how long it spent in each
state during the window, how much of that was scheduled downtime, and how
much time is indeterminate (no data, or monitoring not running).

Exit codes:
  0 - All subjects at or above the availability threshold
  1 - At least one subject below the threshold
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, opts)
		},
	}

	opts.WindowOptions.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|prometheus)")
	cmd.Flags().StringSliceVar(&opts.Hosts, "host", nil, "Report on these host(s) only (can be repeated)")
	cmd.Flags().StringSliceVar(&opts.Services, "service", nil, "Report on these service(s) only (can be repeated)")
	cmd.Flags().StringVar(&opts.StatusFile, "status-file", "", "Live status snapshot (overrides status_file)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Parallel archive readers and subject workers (0 = default)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show scheduled splits and report metadata")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging to stderr")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnBreach), "When to fire webhook (on_breach|always|never)")

	return cmd
}

func runReport(cmd *cobra.Command, args []string, opts *ReportOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Fail on a bad format before doing any work
	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	now := time.Now()
	window, err := opts.resolve(now, cfg.Location())
	if err != nil {
		return err
	}

	reg, err := buildRegistry(cfg, opts.Hosts, opts.Services)
	if err != nil {
		return err
	}

	policy := buildPolicy(cfg)
	paths, err := selectArchives(cfg, policy, window, now)
	if err != nil {
		return err
	}
	logger.Debug("archives selected", zap.Strings("paths", paths))

	// Read and route log lines
	extractor := parser.NewTimestampExtractor(cfg.TimestampFormat.CompiledPattern(), cfg.TimestampFormat.Layout)
	ingestOpts := []ingest.Option{
		ingest.WithSoftStates(policy.IncludeSoftStates),
		ingest.WithDowntime(policy.ShowScheduledDowntime),
		ingest.WithLogger(logger),
	}
	if opts.Concurrency > 0 {
		ingestOpts = append(ingestOpts, ingest.WithConcurrency(opts.Concurrency))
	}
	in := ingest.New(reg, extractor, ingestOpts...)
	if err := in.Ingest(ctx, paths); err != nil {
		return fmt.Errorf("reading logs: %w", err)
	}
	stats := in.Stats()
	if stats.Archives == 0 {
		logger.Warn("no archives could be read", zap.Strings("skipped", stats.Skipped))
	}

	// Compute availability
	engineOpts := []availability.EngineOption{
		availability.WithLogger(logger),
		availability.WithNow(now),
		availability.WithTimeperiod(cfg.Timeperiod()),
	}
	if opts.Concurrency > 0 {
		engineOpts = append(engineOpts, availability.WithConcurrency(opts.Concurrency))
	}
	lookup, err := loadStatus(cfg, opts.StatusFile)
	if err != nil {
		return err
	}
	if lookup != nil {
		engineOpts = append(engineOpts, availability.WithStatus(lookup))
	}

	engine, err := availability.NewEngine(window, policy, engineOpts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	sum, err := engine.Run(ctx, reg)
	if err != nil {
		return err
	}

	// Create report
	report := output.NewReport(reg, sum, cfg.Threshold, output.Metadata{
		ConfigFile:     configPath,
		Sources:        readSources(paths, stats.Skipped),
		Skipped:        stats.Skipped,
		Window:         output.TimeRange{Start: window.Start, End: window.End},
		Timeperiod:     cfg.ReportTimeperiod,
		LinesProcessed: stats.Lines,
		GeneratedAt:    now,
		Duration:       time.Since(now),
	})

	// Output report
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Send webhooks (failures are logged but don't fail the report)
	sendWebhooks(ctx, logger, cfg, opts, report)

	// Set exit code based on results
	if report.HasBreaches() {
		ExitCode = 1
	}

	return nil
}

// buildRegistry admits the configured subjects that pass the filter.
func buildRegistry(cfg *config.Config, hosts, services []string) (*subject.Registry, error) {
	reg := subject.NewRegistry(subject.WithAuthorizer(subjectFilter(hosts, services)))
	for _, sc := range cfg.AllSubjects() {
		reg.Add(sc.Kind(), sc.Host, sc.Service)
	}
	if reg.Len() == 0 {
		return nil, errNoSubjectsSelected
	}
	return reg, nil
}

// subjectFilter admits subjects on the listed hosts. Listing services
// restricts the report to those services.
func subjectFilter(hosts, services []string) subject.Authorizer {
	return func(kind subject.Kind, host, service string) bool {
		if len(hosts) > 0 && !slices.Contains(hosts, host) {
			return false
		}
		if len(services) > 0 {
			return kind == subject.KindService && slices.Contains(services, service)
		}
		return true
	}
}

func buildPolicy(cfg *config.Config) availability.Policy {
	p := cfg.Policy
	return availability.Policy{
		AssumeInitialStates:          p.AssumeInitialStates,
		AssumeStateRetention:         p.AssumeStateRetention,
		AssumeStatesDuringNotRunning: p.AssumeStatesDuringNotRunning,
		IncludeSoftStates:            p.IncludeSoftStates,
		InitialHostState:             p.InitialHostState(),
		InitialServiceState:          p.InitialServiceState(),
		Backtrack:                    p.BacktrackArchives,
		ShowScheduledDowntime:        p.ShowScheduledDowntime,
	}
}

// loadStatus reads the live status snapshot, if one is configured.
func loadStatus(cfg *config.Config, override string) (status.Lookup, error) {
	path := cfg.StatusFile
	if override != "" {
		path = override
	}
	if path == "" {
		return nil, nil
	}
	m, err := status.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading status file: %w", err)
	}
	return m, nil
}

func readSources(paths, skipped []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !slices.Contains(skipped, p) {
			out = append(out, p)
		}
	}
	return out
}

// sendWebhooks sends the report to all configured webhooks whose trigger fires.
func sendWebhooks(ctx context.Context, logger *zap.Logger, cfg *config.Config, opts *ReportOptions, report *output.Report) {
	var targets []webhook.Target
	for _, wh := range collectWebhooks(cfg, opts) {
		if !shouldFireWebhook(wh.Trigger, report.HasBreaches()) {
			continue
		}
		targets = append(targets, webhook.Target{
			Name: wh.Name,
			SendOptions: webhook.SendOptions{
				URL:     wh.URL,
				Token:   wh.Token,
				Timeout: wh.Timeout,
			},
		})
	}
	if len(targets) == 0 {
		return
	}

	webhook.NewClient(webhook.WithLogger(logger)).Notify(ctx, report, targets)
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ReportOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnBreach
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}

// shouldFireWebhook determines if a webhook should fire based on trigger and breach.
func shouldFireWebhook(trigger config.WebhookTrigger, breached bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return breached
	}
}
