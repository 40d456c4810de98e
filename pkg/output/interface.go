package output

import (
	"context"
	"fmt"
	"io"
)

// Formatter renders availability reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json, prometheus).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds scheduled/unscheduled splits and report metadata.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool
}

// Formats lists the supported output format names.
var Formats = []string{"text", "json", "prometheus"}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	case "prometheus":
		return NewPrometheusFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text, json or prometheus)", name)
	}
}
