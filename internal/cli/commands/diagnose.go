package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/availog/pkg/archive"
	"github.com/ccollicutt/availog/pkg/config"
	"github.com/ccollicutt/availog/pkg/parser"
	"github.com/ccollicutt/availog/pkg/status"
	"github.com/ccollicutt/availog/pkg/webhook"
)

// sampleLines is the number of lines used to test the timestamp pattern.
const sampleLines = 10

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Log file and archive directory accessibility
- Timestamp format matching against actual logs
- How many log lines are recognised as state, downtime or program events
- Which configured subjects appear in the log at all
- Status file and webhook configuration

Example:
  availog diagnose config.yaml
  availog diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check log file and archives
	results = append(results, checkLogSources(cfg)...)

	// 4. Check timestamp format against actual logs
	results = append(results, checkTimestampFormat(cfg, opts)...)

	// 5. Check line vocabulary and subject coverage
	results = append(results, checkVocabulary(ctx, cfg, opts)...)

	// 6. Check status file
	results = append(results, checkStatusFile(cfg, opts)...)

	// 7. Check webhooks configuration
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{"At minimum set log_file and hosts"}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case errors.Is(err, config.ErrNoSubjects):
			result.Suggests = []string{
				"Add a hosts list or a subjects list with host and service entries",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Subjects: %d", len(cfg.AllSubjects())),
		fmt.Sprintf("Rotation: %s", cfg.Rotation().Method),
	}
	return cfg, result
}

func checkLogSources(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Archives) > 0 {
		result := DiagnosticResult{Check: "Archives"}
		files, err := parser.ExpandGlobs(cfg.Archives)
		switch {
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Invalid archive pattern: %v", err)
		case len(files) == 0:
			result.Status = "error"
			result.Message = "Archive patterns match no files"
			result.Suggests = []string{"Check the archives entries in your config"}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Matches %d file(s)", len(files))
			result.Details = files
		}
		results = append(results, result)
	}

	if cfg.LogFile != "" {
		results = append(results, checkFile("Log File", cfg.LogFile))
	}

	if cfg.Rotation().Method != archive.None && cfg.LogArchivePath != "" {
		result := DiagnosticResult{Check: "Archive Directory"}
		info, err := os.Stat(cfg.LogArchivePath)
		switch {
		case err != nil:
			result.Status = "warning"
			result.Message = fmt.Sprintf("Cannot access archive directory: %v", err)
			result.Suggests = []string{"Only the current log will be read"}
		case !info.IsDir():
			result.Status = "error"
			result.Message = "log_archive_path is not a directory"
		default:
			matches, _ := filepath.Glob(filepath.Join(cfg.LogArchivePath, "nagios-*.log"))
			if len(matches) == 0 {
				result.Status = "warning"
				result.Message = "No nagios-MM-DD-YYYY-HH.log archives found"
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("%d archive(s) found", len(matches))
			}
		}
		results = append(results, result)
	}

	return results
}

func checkFile(check, path string) DiagnosticResult {
	result := DiagnosticResult{Check: fmt.Sprintf("%s: %s", check, path)}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = "File does not exist"
		result.Suggests = []string{
			"Check if the log file path is correct",
			"Use 'ls -la' to verify the file exists",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "warning"
		result.Message = "File is empty (0 bytes)"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}
	return result
}

// sampleFile returns the first readable log to test against.
func sampleFile(cfg *config.Config) string {
	candidates := []string{cfg.LogFile}
	if len(cfg.Archives) > 0 {
		files, _ := parser.ExpandGlobs(cfg.Archives)
		candidates = append(files, candidates...)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() && info.Size() > 0 {
			return c
		}
	}
	return ""
}

func checkTimestampFormat(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	result := DiagnosticResult{
		Check:   "Timestamp Format",
		Status:  "ok",
		Message: "Timestamp pattern is valid",
		Details: []string{
			fmt.Sprintf("Pattern: %s", cfg.TimestampFormat.Pattern),
			fmt.Sprintf("Layout: %s", cfg.TimestampFormat.Layout),
		},
	}
	results = append(results, result)

	logFile := sampleFile(cfg)
	if logFile == "" {
		return results
	}
	extractor := parser.NewTimestampExtractor(cfg.TimestampFormat.CompiledPattern(), cfg.TimestampFormat.Layout)

	testResult := DiagnosticResult{
		Check: fmt.Sprintf("Pattern Test: %s", filepath.Base(logFile)),
	}

	lines, err := headLines(logFile, sampleLines)
	if err != nil {
		testResult.Status = "warning"
		testResult.Message = fmt.Sprintf("Cannot read file: %v", err)
		return append(results, testResult)
	}

	matchCount := 0
	var sampleMatch, sampleFail string
	for _, line := range lines {
		if _, err := extractor.Extract(line); err == nil {
			matchCount++
			if sampleMatch == "" {
				sampleMatch = line
			}
		} else if sampleFail == "" {
			sampleFail = line
		}
	}

	switch {
	case matchCount == 0:
		testResult.Status = "error"
		testResult.Message = "Pattern matches no lines in log file"
		testResult.Suggests = []string{
			"The timestamp pattern may not match your log format",
			fmt.Sprintf("Monitoring logs normally start with [epoch]: pattern %s, layout %s",
				config.DefaultTimestampPattern, config.DefaultTimestampLayout),
		}
		if sampleFail != "" {
			testResult.Details = []string{"Sample line that didn't match:", truncate(sampleFail, 80)}
		}
	case matchCount < len(lines)/2:
		testResult.Status = "warning"
		testResult.Message = fmt.Sprintf("Pattern matches only %d/%d sample lines", matchCount, len(lines))
		if sampleFail != "" {
			testResult.Details = []string{"Sample line that didn't match:", truncate(sampleFail, 80)}
		}
	default:
		testResult.Status = "ok"
		testResult.Message = fmt.Sprintf("Pattern matches %d/%d sample lines", matchCount, len(lines))
		if opts.Verbose && sampleMatch != "" {
			testResult.Details = []string{"Sample match:", truncate(sampleMatch, 80)}
		}
	}

	return append(results, testResult)
}

// headLines returns up to n non-empty lines from the start of a file.
func headLines(path string, n int) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided log paths from config
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < n {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// vocabulary summarises which log lines carry availability evidence.
type vocabulary struct {
	lines      int
	recognized int
	kinds      map[parser.RecordKind]int
	seen       map[string]bool
}

func scanVocabulary(ctx context.Context, cfg *config.Config, path string) (*vocabulary, error) {
	src := parser.NewFileSource([]string{path}, cfg.TimestampFormat.CompiledPattern(), cfg.TimestampFormat.Layout)
	defer src.Close()

	v := &vocabulary{
		kinds: make(map[parser.RecordKind]int),
		seen:  make(map[string]bool),
	}
	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return v, nil
		}
		if err != nil {
			return nil, err
		}
		v.lines++

		rec, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		v.recognized++
		v.kinds[rec.Kind]++
		switch rec.Kind {
		case parser.RecordHostState, parser.RecordHostDowntime:
			v.seen[rec.Host] = true
		case parser.RecordServiceState, parser.RecordServiceDowntime:
			v.seen[rec.Host] = true
			v.seen[rec.Host+";"+rec.Service] = true
		}
	}
}

func checkVocabulary(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	logFile := sampleFile(cfg)
	if logFile == "" {
		return nil
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Log Vocabulary: %s", filepath.Base(logFile)),
	}
	v, err := scanVocabulary(ctx, cfg, logFile)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot scan file: %v", err)
		return []DiagnosticResult{result}
	}

	switch {
	case v.lines == 0:
		result.Status = "warning"
		result.Message = "No timestamped lines found"
	case v.recognized == 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("None of %d lines carry state, downtime or program events", v.lines)
		result.Suggests = []string{"Check log_file points at the monitoring event log"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d/%d lines recognised (%.1f%%)",
			v.recognized, v.lines, 100*float64(v.recognized)/float64(v.lines))
	}
	if opts.Verbose || result.Status != "ok" {
		kinds := make([]parser.RecordKind, 0, len(v.kinds))
		for k := range v.kinds {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			result.Details = append(result.Details, fmt.Sprintf("%s: %d", k, v.kinds[k]))
		}
	}

	coverage := DiagnosticResult{Check: "Subject Coverage"}
	subjects := cfg.AllSubjects()
	var missing []string
	for _, sc := range subjects {
		name := sc.Host
		if sc.Service != "" {
			name = sc.Host + ";" + sc.Service
		}
		if !v.seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		coverage.Status = "ok"
		coverage.Message = fmt.Sprintf("All %d subject(s) appear in the log", len(subjects))
	} else {
		coverage.Status = "warning"
		coverage.Message = fmt.Sprintf("%d of %d subject(s) never appear in the log", len(missing), len(subjects))
		coverage.Details = missing
		coverage.Suggests = []string{
			"Check host and service names match the monitoring configuration exactly",
			"Subjects without state lines are reported from program events and initial state policy only",
		}
	}

	return []DiagnosticResult{result, coverage}
}

func checkStatusFile(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	p := cfg.Policy
	wantsCurrent := p.InitialAssumedHostState == "current" || p.InitialAssumedServiceState == "current"

	if cfg.StatusFile == "" {
		if wantsCurrent {
			return []DiagnosticResult{{
				Check:    "Status File",
				Status:   "warning",
				Message:  "Initial state is 'current' but no status_file is configured",
				Suggests: []string{"Set status_file, or pass --status-file to the report command"},
			}}
		}
		if opts.Verbose {
			return []DiagnosticResult{{
				Check:   "Status File",
				Status:  "ok",
				Message: "No status file configured (optional)",
			}}
		}
		return nil
	}

	result := DiagnosticResult{Check: fmt.Sprintf("Status File: %s", cfg.StatusFile)}
	m, err := status.LoadFile(cfg.StatusFile)
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return []DiagnosticResult{result}
	}
	result.Status = "ok"
	result.Message = fmt.Sprintf("%d status entries loaded", len(m))
	return []DiagnosticResult{result}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	_, _ = fmt.Fprintln(w, "=== availog Configuration Diagnostics ===")
	_, _ = fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		_, _ = fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		_, _ = fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				_, _ = fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			_, _ = fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		_, _ = fmt.Fprintln(w)
	}

	// Summary
	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		_, _ = fmt.Fprintln(w, "\nFix the errors above before running a report.")
	} else if warnCount > 0 {
		_, _ = fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		_, _ = fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

// reachTimeout bounds each webhook reachability check.
const reachTimeout = 5 * time.Second

// checkWebhooks reviews each webhook against the report's breach rules and,
// in verbose mode, checks that the webhooks able to fire are reachable.
func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	if len(cfg.Webhooks) == 0 {
		if !opts.Verbose {
			return nil
		}
		return []DiagnosticResult{{
			Check:   "Webhooks",
			Status:  "ok",
			Message: "No webhooks configured (optional)",
		}}
	}

	results := make([]DiagnosticResult, 0, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		results = append(results, checkWebhook(cfg.Threshold, wh, opts.Verbose))
	}
	if !opts.Verbose {
		return results
	}

	client := webhook.NewClient()
	for _, wh := range cfg.Webhooks {
		if wh.URL == "" || wh.Trigger == config.WebhookTriggerNever {
			continue
		}
		r := checkWebhookConnectivity(ctx, client, wh)
		r.Check = "Webhook Connectivity: " + webhookName(wh)
		results = append(results, r)
	}
	return results
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

// checkWebhook validates one endpoint and explains when it will fire.
func checkWebhook(threshold float64, wh config.WebhookConfig, verbose bool) DiagnosticResult {
	result := DiagnosticResult{Check: "Webhook: " + webhookName(wh)}

	var issues, warnings []string
	if err := checkWebhookURL(wh.URL); err != nil {
		issues = append(issues, err.Error())
	}
	if strings.HasPrefix(wh.Token, "$") {
		warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
	}

	switch wh.Trigger {
	case config.WebhookTriggerNever:
		warnings = append(warnings, "Trigger is never: the webhook is configured but will not fire")
	case config.WebhookTriggerOnBreach, "":
		if threshold <= 0 {
			warnings = append(warnings, "Threshold is 0: no subject can breach, so on_breach never fires")
		}
	}

	switch {
	case len(issues) > 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
		result.Details = issues
	case len(warnings) > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
		result.Details = warnings
		if wh.Trigger == config.WebhookTriggerNever {
			result.Suggests = []string{"Set trigger to on_breach or always, or remove the webhook"}
		}
	default:
		result.Status = "ok"
		result.Message = describeTrigger(wh.Trigger, threshold)
		if verbose {
			result.Details = []string{fmt.Sprintf("URL: %s", wh.URL)}
			if wh.Timeout > 0 {
				result.Details = append(result.Details, fmt.Sprintf("Timeout: %s", wh.Timeout))
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}
	}
	return result
}

func checkWebhookURL(raw string) error {
	if raw == "" {
		return errors.New("missing url")
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("invalid URL: %w", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return errors.New("URL must have a host")
	}
	return nil
}

func describeTrigger(trigger config.WebhookTrigger, threshold float64) string {
	if trigger == config.WebhookTriggerAlways {
		return "Fires after every report"
	}
	return fmt.Sprintf("Fires when a subject drops below %.2f%% availability", threshold)
}

// checkWebhookConnectivity sends a HEAD request. Endpoints that only accept
// POST answer with an error status but are still reachable.
func checkWebhookConnectivity(ctx context.Context, client *webhook.Client, wh config.WebhookConfig) DiagnosticResult {
	resp := client.Check(ctx, webhook.SendOptions{URL: wh.URL, Token: wh.Token, Timeout: reachTimeout})

	switch {
	case resp.Error != nil:
		return DiagnosticResult{
			Status:  "warning",
			Message: fmt.Sprintf("Cannot connect: %v", resp.Error),
			Suggests: []string{
				"Check if the webhook URL is correct",
				"Verify network connectivity",
			},
		}
	case resp.StatusCode < 400:
		return DiagnosticResult{
			Status:  "ok",
			Message: fmt.Sprintf("Reachable (status %d, %s)", resp.StatusCode, resp.Duration.Round(time.Millisecond)),
		}
	default:
		return DiagnosticResult{
			Status:  "warning",
			Message: fmt.Sprintf("Reachable but returned status %d", resp.StatusCode),
			Suggests: []string{
				"The endpoint may only accept POST, which reports use",
				"Check the bearer token",
			},
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
