package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/availog/pkg/config"
)

// ArchivesOptions holds command-line options for the archives command.
type ArchivesOptions struct {
	WindowOptions
}

// NewArchivesCommand creates the archives command.
func NewArchivesCommand() *cobra.Command {
	opts := &ArchivesOptions{}

	cmd := &cobra.Command{
		Use:   "archives <config-file>",
		Short: "List the log archives a report window would read",
		Long: `List the log archives a report would read for a window, newest first.

Archives are named by the rotation that closed them
(nagios-MM-DD-YYYY-HH.log). Extra archives before the window start are
included according to policy.backtrack_archives. Missing files are marked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchives(cmd, args, opts)
		},
	}

	opts.WindowOptions.addFlags(cmd)

	return cmd
}

func runArchives(cmd *cobra.Command, args []string, opts *ArchivesOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	now := time.Now()
	window, err := opts.resolve(now, cfg.Location())
	if err != nil {
		return err
	}

	paths, err := selectArchives(cfg, buildPolicy(cfg), window, now)
	if err != nil {
		return err
	}

	printArchives(cmd.OutOrStdout(), cfg, window.Start, window.End, paths)
	return nil
}

func printArchives(w io.Writer, cfg *config.Config, start, end time.Time, paths []string) {
	_, _ = fmt.Fprintf(w, "Window:   %s - %s\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
	if len(cfg.Archives) > 0 {
		_, _ = fmt.Fprintf(w, "Rotation: explicit archive list\n")
	} else {
		_, _ = fmt.Fprintf(w, "Rotation: %s\n", cfg.Rotation().Method)
	}
	_, _ = fmt.Fprintf(w, "\nArchives (%d):\n", len(paths))

	missing := 0
	for _, p := range paths {
		mark := ""
		if _, err := os.Stat(p); err != nil {
			mark = "  (missing)"
			missing++
		}
		_, _ = fmt.Fprintf(w, "  - %s%s\n", p, mark)
	}
	if missing > 0 {
		_, _ = fmt.Fprintf(w, "\n%d archive(s) missing; their time will be reported as no data.\n", missing)
	}
}
