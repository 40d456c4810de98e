// Package cli provides the command-line interface for availog.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/availog/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "availog",
		Short: "Reconstruct host and service availability from monitoring logs",
		Long: `availog is a batch tool that reconstructs how long hosts and services spent
in each state from a monitoring system's event log and its rotated archives.

For a report window it accounts for:
  - Time in every host state (UP, DOWN, UNREACHABLE)
  - Time in every service state (OK, WARNING, UNKNOWN, CRITICAL)
  - How much of each state fell inside scheduled downtime
  - Indeterminate time (no data, or monitoring not running)

Time can be restricted to a weekly timeperiod such as business hours.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewArchivesCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
