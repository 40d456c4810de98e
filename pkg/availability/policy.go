// Package availability reconstructs per-subject state timelines over a
// report window and accounts every second of the window to a state, to
// scheduled downtime, or to one of the indeterminate reasons.
package availability

import (
	"time"

	"github.com/ccollicutt/availog/pkg/status"
	"github.com/ccollicutt/availog/pkg/subject"
	"github.com/ccollicutt/availog/pkg/timeperiod"
)

// DefaultBacktrack is the number of archives read before the window start.
const DefaultBacktrack = 2

// Policy holds the assumptions applied where log evidence is missing.
type Policy struct {
	// AssumeInitialStates resolves the interval after a program start to a
	// concrete state instead of discarding it.
	AssumeInitialStates bool

	// AssumeStateRetention carries the last known state across a restart.
	AssumeStateRetention bool

	// AssumeStatesDuringNotRunning carries the last known state across
	// intervals where the monitoring process was down.
	AssumeStatesDuringNotRunning bool

	// IncludeSoftStates keeps SOFT state changes.
	IncludeSoftStates bool

	// InitialHostState and InitialServiceState are the states assumed at
	// the window start. NoData means unspecified; Current asks the live
	// status lookup.
	InitialHostState    subject.State
	InitialServiceState subject.State

	// Backtrack is the number of extra archives scanned before the window.
	Backtrack int

	// ShowScheduledDowntime enables the downtime overlay.
	ShowScheduledDowntime bool
}

// DefaultPolicy returns the assumptions used when none are configured.
func DefaultPolicy() Policy {
	return Policy{
		AssumeInitialStates:          true,
		AssumeStateRetention:         true,
		AssumeStatesDuringNotRunning: true,
		IncludeSoftStates:            false,
		InitialHostState:             subject.NoData,
		InitialServiceState:          subject.NoData,
		Backtrack:                    DefaultBacktrack,
		ShowScheduledDowntime:        true,
	}
}

// initialState returns the assumed state for the subject's kind.
func (p Policy) initialState(kind subject.Kind) subject.State {
	if kind == subject.KindService {
		return p.InitialServiceState
	}
	return p.InitialHostState
}

// Window is the closed report interval [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Seconds returns the accountable length of the window.
func (w Window) Seconds(tp *timeperiod.Weekly) uint64 {
	return timeperiod.Elapsed(w.Start, w.End, tp)
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Params is everything a single subject computation depends on besides
// the subject itself. It is shared read-only between subjects.
type Params struct {
	Window     Window
	Policy     Policy
	Timeperiod *timeperiod.Weekly
	Status     status.Lookup
	Now        time.Time
}

func (p Params) elapsed(start, end time.Time) uint64 {
	if !end.After(start) {
		return 0
	}
	return timeperiod.Elapsed(start, end, p.Timeperiod)
}

func (p Params) lookup(s *subject.Subject) (subject.State, bool) {
	if p.Status == nil {
		return subject.NoData, false
	}
	return p.Status.State(s.Kind, s.Host, s.Service)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
