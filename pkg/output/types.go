// Package output provides formatting and output generation for availability reports.
package output

import (
	"time"

	"github.com/ccollicutt/availog/pkg/availability"
	"github.com/ccollicutt/availog/pkg/subject"
)

// Report is the complete availability output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Subjects holds one entry per reported host or service.
	Subjects []SubjectReport `json:"subjects"`

	// Metadata provides context about the report.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// Subjects is the number of subjects reported on.
	Subjects int `json:"subjects"`

	// InBreach counts subjects whose availability is below Threshold.
	InBreach int `json:"in_breach"`

	// NoData counts subjects without any state evidence.
	NoData int `json:"no_data"`

	// Threshold is the availability percentage subjects are held to.
	Threshold float64 `json:"threshold"`

	// WindowSeconds is the accountable length of the report window.
	WindowSeconds uint64 `json:"window_seconds"`
}

// Metadata provides context about the report run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists the archives that were read.
	Sources []string `json:"sources,omitempty"`

	// Skipped lists archives that could not be read.
	Skipped []string `json:"skipped,omitempty"`

	// Window is the report window.
	Window TimeRange `json:"window"`

	// Timeperiod is the name of the weekly timeperiod, empty for 24x7.
	Timeperiod string `json:"timeperiod,omitempty"`

	// LinesProcessed is the number of timestamped log lines read.
	LinesProcessed int `json:"lines_processed"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Duration is how long the report took.
	Duration time.Duration `json:"duration"`
}

// TimeRange represents a report window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SubjectReport is the accounting of one host or service.
type SubjectReport struct {
	Kind    string `json:"kind"`
	Host    string `json:"host"`
	Service string `json:"service,omitempty"`

	// HasData is false when no state evidence was found.
	HasData bool `json:"has_data"`

	States        []StateTime   `json:"states"`
	Indeterminate Indeterminate `json:"indeterminate"`

	// Availability is the UP or OK share of the window, in percent.
	Availability float64 `json:"availability"`
	InBreach     bool    `json:"in_breach"`

	Earliest *Observation `json:"earliest,omitempty"`
	Latest   *Observation `json:"latest,omitempty"`
}

// Name is "host" or "host;service".
func (s *SubjectReport) Name() string {
	if s.Service != "" {
		return s.Host + ";" + s.Service
	}
	return s.Host
}

// StateTime is the time spent in one concrete state.
type StateTime struct {
	State       string `json:"state"`
	Seconds     uint64 `json:"seconds"`
	Scheduled   uint64 `json:"scheduled"`
	Unscheduled uint64 `json:"unscheduled"`

	// PercentOfWindow is Seconds relative to the whole window.
	PercentOfWindow float64 `json:"percent_of_window"`

	// PercentOfKnown is Seconds relative to the determinate part of the window.
	PercentOfKnown float64 `json:"percent_of_known"`
}

// Indeterminate is the part of the window no state could be attributed to.
type Indeterminate struct {
	NoData     uint64 `json:"no_data"`
	NotRunning uint64 `json:"not_running"`

	// Scheduled is downtime during which the state was unknown.
	Scheduled uint64 `json:"scheduled"`

	PercentOfWindow float64 `json:"percent_of_window"`
}

// Observation is a state seen at a point in time.
type Observation struct {
	Time  time.Time `json:"time"`
	State string    `json:"state"`
}

// NewReport creates a Report from computed subjects.
func NewReport(reg *subject.Registry, sum *availability.Summary, threshold float64, meta Metadata) *Report {
	report := &Report{
		Subjects: make([]SubjectReport, 0, reg.Len()),
		Metadata: meta,
		Summary: Summary{
			Subjects:      reg.Len(),
			Threshold:     threshold,
			WindowSeconds: sum.WindowSeconds,
		},
	}

	for _, s := range reg.Subjects() {
		sr := newSubjectReport(s, sum.WindowSeconds, threshold)
		if !sr.HasData {
			report.Summary.NoData++
		}
		if sr.InBreach {
			report.Summary.InBreach++
		}
		report.Subjects = append(report.Subjects, sr)
	}

	if report.Metadata.GeneratedAt.IsZero() {
		report.Metadata.GeneratedAt = sum.EndTime
	}
	if report.Metadata.Duration == 0 {
		report.Metadata.Duration = sum.EndTime.Sub(sum.StartTime)
	}

	return report
}

func newSubjectReport(s *subject.Subject, window uint64, threshold float64) SubjectReport {
	t := &s.Totals
	known := t.Determinate()

	sr := SubjectReport{
		Kind:    s.Kind.String(),
		Host:    s.Host,
		Service: s.Service,
		HasData: s.HasData,
		Indeterminate: Indeterminate{
			NoData:          t.IndeterminateNoData,
			NotRunning:      t.IndeterminateNotRunning,
			Scheduled:       t.ScheduledIndeterminate,
			PercentOfWindow: percent(t.Indeterminate(), window),
		},
	}
	if !s.HasData {
		sr.Indeterminate.NoData = window
		sr.Indeterminate.PercentOfWindow = percent(window, window)
	}

	for _, st := range s.States() {
		sr.States = append(sr.States, StateTime{
			State:           st.String(),
			Seconds:         t.Time(st),
			Scheduled:       t.Scheduled(st),
			Unscheduled:     t.Unscheduled(st),
			PercentOfWindow: percent(t.Time(st), window),
			PercentOfKnown:  percent(t.Time(st), known),
		})
	}

	sr.Availability = percent(t.Time(s.DefaultState()), window)
	sr.InBreach = s.HasData && sr.Availability < threshold

	if !s.EarliestTime.IsZero() {
		sr.Earliest = &Observation{Time: s.EarliestTime, State: s.EarliestState.String()}
	}
	if !s.LatestTime.IsZero() {
		sr.Latest = &Observation{Time: s.LatestTime, State: s.LatestState.String()}
	}
	return sr
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// HasBreaches returns true if any subject is below the threshold.
func (r *Report) HasBreaches() bool {
	return r.Summary.InBreach > 0
}
