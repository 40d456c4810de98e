package output

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "availog: %d subjects, %d in breach, %d without data\n",
		report.Summary.Subjects,
		report.Summary.InBreach,
		report.Summary.NoData)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Availability Report ===")

	win := report.Metadata.Window
	fmt.Fprintf(w, "Window: %s - %s (%s accountable",
		win.Start.Format("2006-01-02 15:04:05"),
		win.End.Format("2006-01-02 15:04:05"),
		FormatSeconds(report.Summary.WindowSeconds))
	if report.Metadata.Timeperiod != "" {
		fmt.Fprintf(w, ", timeperiod %s", report.Metadata.Timeperiod)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)

	for i := range report.Subjects {
		f.formatSubject(&report.Subjects[i], report.Summary.Threshold, w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d subjects, %d in breach, %d without data\n",
		report.Summary.Subjects,
		report.Summary.InBreach,
		report.Summary.NoData)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Archives read: %d, skipped: %d\n", len(report.Metadata.Sources), len(report.Metadata.Skipped))
		fmt.Fprintf(w, "Lines processed: %d\n", report.Metadata.LinesProcessed)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatSubject(s *SubjectReport, threshold float64, w io.Writer) {
	fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(s.Kind), s.Name())

	if !s.HasData {
		fmt.Fprintln(w, "  No state data available")
		fmt.Fprintln(w)
		return
	}

	for _, st := range s.States {
		fmt.Fprintf(w, "  %-13s %16s %8.3f%%  (known %7.3f%%)\n",
			st.State, FormatSeconds(st.Seconds), st.PercentOfWindow, st.PercentOfKnown)
		if f.opts.Verbose {
			fmt.Fprintf(w, "    scheduled %s, unscheduled %s\n",
				FormatSeconds(st.Scheduled), FormatSeconds(st.Unscheduled))
		}
	}

	ind := s.Indeterminate
	fmt.Fprintf(w, "  %-13s %16s %8.3f%%\n",
		"Undetermined", FormatSeconds(ind.NoData+ind.NotRunning), ind.PercentOfWindow)
	if f.opts.Verbose {
		fmt.Fprintf(w, "    not running %s, no data %s, scheduled %s\n",
			FormatSeconds(ind.NotRunning), FormatSeconds(ind.NoData), FormatSeconds(ind.Scheduled))
		if s.Earliest != nil {
			fmt.Fprintf(w, "    first state %s at %s\n", s.Earliest.State, s.Earliest.Time.Format("2006-01-02 15:04:05"))
		}
		if s.Latest != nil {
			fmt.Fprintf(w, "    last state %s at %s\n", s.Latest.State, s.Latest.Time.Format("2006-01-02 15:04:05"))
		}
	}

	if s.InBreach {
		fmt.Fprintf(w, "  Availability %.3f%% (below threshold %.3f%%)\n", s.Availability, threshold)
	} else {
		fmt.Fprintf(w, "  Availability %.3f%%\n", s.Availability)
	}
	fmt.Fprintln(w)
}

// FormatSeconds renders a duration as "1d 2h 3m 4s", dropping leading
// zero units.
func FormatSeconds(sec uint64) string {
	days := sec / 86400
	hours := sec % 86400 / 3600
	minutes := sec % 3600 / 60
	seconds := sec % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
