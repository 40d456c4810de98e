package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/availog/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an availog configuration file without reading any logs.

Checks:
  - YAML syntax
  - Required fields
  - Timestamp regex validity
  - Rotation method, timezone and timeperiod definitions
  - Policy states and threshold
  - Log file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(w, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	subjects := cfg.AllSubjects()
	tp := cfg.ReportTimeperiod
	if tp == "" {
		tp = "24x7"
	}

	// Report what we found
	_, _ = fmt.Fprintf(w, "\nConfiguration valid!\n")
	_, _ = fmt.Fprintf(w, "  Log file:    %s\n", cfg.LogFile)
	_, _ = fmt.Fprintf(w, "  Rotation:    %s\n", cfg.Rotation().Method)
	_, _ = fmt.Fprintf(w, "  Timeperiod:  %s\n", tp)
	_, _ = fmt.Fprintf(w, "  Threshold:   %.2f%%\n", cfg.Threshold)
	_, _ = fmt.Fprintf(w, "  Subjects:    %d\n", len(subjects))

	// List subjects
	_, _ = fmt.Fprintf(w, "\nSubjects:\n")
	for i, sc := range subjects {
		name := sc.Host
		if sc.Service != "" {
			name = sc.Host + ";" + sc.Service
		}
		_, _ = fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, sc.Kind(), name)
	}

	// Check the current log exists (warning only)
	if cfg.LogFile != "" {
		if _, err := os.Stat(cfg.LogFile); err != nil {
			_, _ = fmt.Fprintf(w, "\nWarning: log file %s is not accessible: %v\n", cfg.LogFile, err)
		}
	}

	return nil
}
