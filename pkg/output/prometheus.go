package output

import (
	"context"
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric names written by the prometheus formatter.
const (
	MetricStateSeconds         = "availog_state_seconds"
	MetricScheduledSeconds     = "availog_scheduled_state_seconds"
	MetricIndeterminateSeconds = "availog_indeterminate_seconds"
	MetricAvailabilityPercent  = "availog_availability_percent"
	MetricWindowSeconds        = "availog_window_seconds"
	MetricSubjectsInBreach     = "availog_subjects_in_breach"
)

// PrometheusFormatter writes the report in the Prometheus text exposition
// format, suitable for the node exporter textfile collector.
type PrometheusFormatter struct {
	opts FormatOptions
}

// NewPrometheusFormatter creates a new prometheus formatter.
func NewPrometheusFormatter(opts FormatOptions) *PrometheusFormatter {
	return &PrometheusFormatter{opts: opts}
}

// Name returns the format name.
func (f *PrometheusFormatter) Name() string {
	return "prometheus"
}

// Format renders the report as metric families.
func (f *PrometheusFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	for _, mf := range f.families(report) {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func (f *PrometheusFormatter) families(report *Report) []*dto.MetricFamily {
	window := gaugeFamily(MetricWindowSeconds, "Accountable seconds in the report window.")
	window.Metric = append(window.Metric, gauge(float64(report.Summary.WindowSeconds)))

	breach := gaugeFamily(MetricSubjectsInBreach, "Subjects whose availability is below the threshold.")
	breach.Metric = append(breach.Metric, gauge(float64(report.Summary.InBreach)))

	if f.opts.Quiet {
		return []*dto.MetricFamily{window, breach}
	}

	states := gaugeFamily(MetricStateSeconds, "Seconds spent in each state during the report window.")
	scheduled := gaugeFamily(MetricScheduledSeconds, "Seconds spent in each state during scheduled downtime.")
	indeterminate := gaugeFamily(MetricIndeterminateSeconds, "Seconds that could not be attributed to a state, by reason.")
	avail := gaugeFamily(MetricAvailabilityPercent, "UP or OK share of the report window.")

	for i := range report.Subjects {
		s := &report.Subjects[i]
		if !s.HasData {
			continue
		}
		for _, st := range s.States {
			states.Metric = append(states.Metric, gauge(float64(st.Seconds), subjectLabels(s, "state", st.State)...))
			scheduled.Metric = append(scheduled.Metric, gauge(float64(st.Scheduled), subjectLabels(s, "state", st.State)...))
		}
		indeterminate.Metric = append(indeterminate.Metric,
			gauge(float64(s.Indeterminate.NoData), subjectLabels(s, "reason", "no_data")...),
			gauge(float64(s.Indeterminate.NotRunning), subjectLabels(s, "reason", "not_running")...),
		)
		avail.Metric = append(avail.Metric, gauge(s.Availability, subjectLabels(s)...))
	}

	return []*dto.MetricFamily{window, breach, states, scheduled, indeterminate, avail}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

// subjectLabels returns host, service and kind labels plus extra name/value
// pairs, sorted by name as the exposition format expects.
func subjectLabels(s *SubjectReport, extra ...string) []*dto.LabelPair {
	pairs := [][2]string{{"host", s.Host}, {"kind", s.Kind}}
	if s.Service != "" {
		pairs = append(pairs, [2]string{"service", s.Service})
	}
	for i := 0; i+1 < len(extra); i += 2 {
		pairs = append(pairs, [2]string{extra[i], extra[i+1]})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	labels := make([]*dto.LabelPair, 0, len(pairs))
	for _, p := range pairs {
		labels = append(labels, &dto.LabelPair{Name: proto.String(p[0]), Value: proto.String(p[1])})
	}
	return labels
}
