package availability

import (
	"time"

	"github.com/ccollicutt/availog/pkg/subject"
)

// Overlay splits the subject's totals into scheduled and unscheduled time.
// It reads the processed states left by Reconstruct and must run after it.
func Overlay(s *subject.Subject, p Params) {
	if !p.Policy.ShowScheduledDowntime || !s.HasData || len(s.Downtime) == 0 {
		return
	}

	t1, t2 := p.Window.Start, p.Window.End
	if t1.After(p.Now) {
		return
	}
	limit := minTime(p.Now, t2)

	markers := s.Downtime

	// Downtime already running when the log starts shows up as END
	// markers without a START. It covers the window up to the first marker.
	hostDepth, serviceDepth := openAtStart(markers)
	if hostDepth > 0 || serviceDepth > 0 {
		if end := minTime(markers[0].Time, limit); end.After(t1) {
			overlayChunk(s, p, t1, end, 0)
		}
	}

	for i, m := range markers {
		if !m.Time.Before(t2) {
			break
		}

		switch m.Kind {
		case subject.HostDowntimeStart:
			hostDepth++
		case subject.HostDowntimeEnd:
			hostDepth = max(hostDepth-1, 0)
		case subject.ServiceDowntimeStart:
			serviceDepth++
		case subject.ServiceDowntimeEnd:
			serviceDepth = max(serviceDepth-1, 0)
		}
		if hostDepth == 0 && serviceDepth == 0 {
			continue
		}

		start, end := m.Time, p.Now
		if i+1 < len(markers) {
			end = markers[i+1].Time
		}
		if !end.After(t1) || !start.Before(t2) {
			continue
		}
		start, end = maxTime(start, t1), minTime(end, limit)
		if !end.After(start) {
			continue
		}
		overlayChunk(s, p, start, end, m.Anchor)
	}
}

// openAtStart returns, per scope, how many downtimes were already in
// effect before the first marker: the deepest run of END markers not
// balanced by an earlier START.
func openAtStart(markers []*subject.DowntimeEvent) (host, service int) {
	var h, sv int
	for _, m := range markers {
		switch m.Kind {
		case subject.HostDowntimeStart:
			h++
		case subject.HostDowntimeEnd:
			h--
			host = max(host, -h)
		case subject.ServiceDowntimeStart:
			sv++
		case subject.ServiceDowntimeEnd:
			sv--
			service = max(service, -sv)
		}
	}
	return host, service
}

// overlayChunk credits [start, end] to the scheduled totals, split at
// every change of processed state.
func overlayChunk(s *subject.Subject, p Params, start, end time.Time, anchor uint64) {
	i := stateAt(s, start, anchor)

	state := subject.NoData
	if i >= 0 {
		state = s.Events[i].Processed
	}

	cursor := start
	for j := i + 1; j < len(s.Events); j++ {
		ev := s.Events[j]
		if !ev.Time.Before(end) {
			break
		}
		if ev.Processed == state {
			continue
		}
		s.Totals.AddScheduled(state, p.elapsed(cursor, ev.Time))
		cursor, state = ev.Time, ev.Processed
	}
	s.Totals.AddScheduled(state, p.elapsed(cursor, end))
}

// stateAt returns the index of the last event at or before t, or -1. The
// anchor is where the downtime marker was recorded and is used as a
// starting point for the search.
func stateAt(s *subject.Subject, t time.Time, anchor uint64) int {
	i := s.IndexOf(anchor)
	if i < 0 {
		i = 0
	}
	for i > 0 && s.Events[i].Time.After(t) {
		i--
	}
	for i+1 < len(s.Events) && !s.Events[i+1].Time.After(t) {
		i++
	}
	if i >= len(s.Events) || s.Events[i].Time.After(t) {
		return -1
	}
	return i
}
