package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/availog/pkg/archive"
	"github.com/ccollicutt/availog/pkg/availability"
	"github.com/ccollicutt/availog/pkg/config"
	"github.com/ccollicutt/availog/pkg/parser"
)

// DefaultPeriod is the report period used when no window flag is given.
const DefaultPeriod = "last24hours"

// WindowOptions selects the report window.
type WindowOptions struct {
	Period    string
	Start     string
	End       string
	TimeRange string
}

func (w *WindowOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.Period, "period", DefaultPeriod,
		fmt.Sprintf("Report period (%s)", strings.Join(availability.Periods(), "|")))
	cmd.Flags().StringVar(&w.Start, "start", "", "Window start (RFC3339 or unix seconds)")
	cmd.Flags().StringVar(&w.End, "end", "", "Window end (RFC3339 or unix seconds, default now)")
	cmd.Flags().StringVar(&w.TimeRange, "time-range", "", "Window ending now (e.g., 2h, 24h)")
}

// resolve turns the flags into a window. Explicit --start wins over
// --time-range, which wins over --period.
func (w *WindowOptions) resolve(now time.Time, loc *time.Location) (availability.Window, error) {
	switch {
	case w.Start != "":
		start, err := availability.ParseTime(w.Start, loc)
		if err != nil {
			return availability.Window{}, fmt.Errorf("invalid start %q: %w", w.Start, err)
		}
		end := now
		if w.End != "" {
			end, err = availability.ParseTime(w.End, loc)
			if err != nil {
				return availability.Window{}, fmt.Errorf("invalid end %q: %w", w.End, err)
			}
		}
		if end.Before(start) {
			return availability.Window{}, fmt.Errorf("end %s is before start %s",
				end.Format(time.RFC3339), start.Format(time.RFC3339))
		}
		return availability.Window{Start: start, End: end}, nil

	case w.End != "":
		return availability.Window{}, fmt.Errorf("--end requires --start")

	case w.TimeRange != "":
		d, err := time.ParseDuration(w.TimeRange)
		if err != nil {
			return availability.Window{}, fmt.Errorf("invalid time-range %q: %w", w.TimeRange, err)
		}
		if d <= 0 {
			return availability.Window{}, fmt.Errorf("invalid time-range %q: must be positive", w.TimeRange)
		}
		return availability.Window{Start: now.Add(-d), End: now}, nil

	default:
		period := w.Period
		if period == "" {
			period = DefaultPeriod
		}
		return availability.ParsePeriod(period, now, loc)
	}
}

// selectArchives lists the files to read for the window, newest first.
// Rotated archives are read back policy.Backtrack files past the window start.
func selectArchives(cfg *config.Config, policy availability.Policy, window availability.Window, now time.Time) ([]string, error) {
	if len(cfg.Archives) > 0 {
		files, err := parser.ExpandGlobs(cfg.Archives)
		if err != nil {
			return nil, fmt.Errorf("expanding archives: %w", err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no archive files matched patterns: %v", cfg.Archives)
		}
		return files, nil
	}

	ids := archive.Select(cfg.Rotation(), now, window.Start, window.End, policy.Backtrack)
	return cfg.Locator().Paths(now, ids), nil
}
