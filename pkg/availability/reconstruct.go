package availability

import (
	"time"

	"github.com/ccollicutt/availog/pkg/subject"
)

// Outcome says how far reconstruction got for one subject.
type Outcome int

const (
	// Computed means totals were accumulated.
	Computed Outcome = iota
	// NotStarted means the window starts after now; nothing was computed.
	NotStarted
	// NoEvidence means no concrete state or downtime was in evidence.
	NoEvidence
)

func (o Outcome) String() string {
	switch o {
	case NotStarted:
		return "not started"
	case NoEvidence:
		return "no evidence"
	}
	return "computed"
}

// Reconstruct recomputes the subject's totals from its ingested timeline.
// Previous results are discarded first, so calling it again on the same
// subject yields the same totals.
func Reconstruct(s *subject.Subject, p Params) Outcome {
	s.Reset()

	t1, t2 := p.Window.Start, p.Window.End
	if t1.After(p.Now) {
		return NotStarted
	}

	seedCurrentState(s, p)
	seedInitialState(s, p)

	if !hasEvidence(s) {
		return NoEvidence
	}
	s.HasData = true

	r := &reconstruction{s: s, p: p}
	var prev *subject.StateEvent
	for _, ev := range s.Events {
		r.observe(ev)

		if prev == nil {
			if ev.Entry.IsConcrete() {
				s.LastKnownState = ev.Entry
			}
			prev = ev
			continue
		}
		if prev.Time.After(t2) {
			break
		}

		r.accumulate(prev, ev.Entry, maxTime(prev.Time, t1), minTime(ev.Time, t2))
		prev = ev
		if !ev.Time.Before(t2) {
			break
		}
	}

	// The neutral end state only closes the interval; it is never accounted.
	end := minTime(p.Now, t2)
	if prev != nil && prev.Time.Before(end) {
		r.accumulate(prev, s.DefaultState(), maxTime(prev.Time, t1), end)
	}

	deriveIndeterminate(s, p)
	return Computed
}

// seedCurrentState gives a subject without any log evidence the live
// status, as long as the window includes now.
func seedCurrentState(s *subject.Subject, p Params) {
	if len(s.Events) > 0 || !p.Window.Contains(p.Now) {
		return
	}
	st, ok := p.lookup(s)
	if !ok {
		return
	}
	s.AddEvent(subject.StateEvent{
		Time:      p.Window.Start,
		Entry:     st,
		Type:      subject.Hard,
		Info:      "Current state assumed",
		Synthetic: true,
	})
}

// seedInitialState inserts the configured assumed state ahead of the
// timeline so that a concrete state is in evidence from the window start.
func seedInitialState(s *subject.Subject, p Params) {
	st := p.Policy.initialState(s.Kind)
	switch {
	case st == subject.Current:
		var ok bool
		if st, ok = p.lookup(s); !ok {
			return
		}
	case !st.IsConcrete() || st.Kind() != s.Kind:
		return
	}

	at := p.Window.Start
	if len(s.Events) > 0 && !s.Events[0].Time.After(at) {
		at = s.Events[0].Time.Add(-time.Second)
	}
	s.AddEvent(subject.StateEvent{
		Time:      at,
		Entry:     st,
		Type:      subject.Hard,
		Info:      "First state assumed",
		Synthetic: true,
	})
}

func hasEvidence(s *subject.Subject) bool {
	if len(s.Downtime) > 0 {
		return true
	}
	for _, ev := range s.Events {
		if ev.Entry.IsConcrete() {
			return true
		}
	}
	return false
}

type reconstruction struct {
	s *subject.Subject
	p Params

	seenEarliest bool
}

// observe tracks the first and last concrete states seen inside the window.
func (r *reconstruction) observe(ev *subject.StateEvent) {
	if !ev.Entry.IsConcrete() || !r.p.Window.Contains(ev.Time) {
		return
	}
	if !r.seenEarliest {
		r.s.EarliestTime, r.s.EarliestState = ev.Time, ev.Entry
		r.seenEarliest = true
	}
	r.s.LatestTime, r.s.LatestState = ev.Time, ev.Entry
}

// accumulate resolves the state of the interval opened by prev and credits
// the part of it inside [start, end] to that state. Intervals outside the
// window are still resolved so the last known state stays current.
func (r *reconstruction) accumulate(prev *subject.StateEvent, next subject.State, start, end time.Time) {
	s, policy := r.s, r.p.Policy
	d := r.p.elapsed(start, end)
	prev.Processed = subject.NoData

	first := prev.Entry
	if first == subject.NoData || next == subject.NoData {
		s.Totals.IndeterminateNoData += d
		return
	}

	if first == subject.ProgramStart && (next == subject.ProgramStart || next == subject.ProgramEnd) {
		if !policy.AssumeInitialStates {
			s.Totals.IndeterminateNoData += d
			return
		}
	}

	switch first {
	case subject.ProgramEnd:
		if !policy.AssumeStatesDuringNotRunning {
			s.Totals.IndeterminateNotRunning += d
			return
		}
		first = s.LastKnownState
	case subject.ProgramStart:
		if !policy.AssumeInitialStates {
			return
		}
		if policy.AssumeStateRetention && s.LastKnownState.IsConcrete() {
			first = s.LastKnownState
		} else {
			first = s.DefaultState()
		}
	}

	if !first.IsConcrete() {
		s.Totals.IndeterminateNoData += d
		return
	}

	s.LastKnownState = first
	prev.Processed = first
	s.Totals.Add(first, d)
}

// deriveIndeterminate settles the indeterminate split once per subject:
// whatever part of the window is not attributed to a concrete state is
// indeterminate, and everything that is not "not running" is "no data".
func deriveIndeterminate(s *subject.Subject, p Params) {
	window := p.Window.Seconds(p.Timeperiod)
	determinate := s.Totals.Determinate()

	var indeterminate uint64
	if window > determinate {
		indeterminate = window - determinate
	}
	if s.Totals.IndeterminateNotRunning > indeterminate {
		s.Totals.IndeterminateNotRunning = indeterminate
	}
	s.Totals.IndeterminateNoData = indeterminate - s.Totals.IndeterminateNotRunning
}
