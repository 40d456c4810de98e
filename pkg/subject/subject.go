package subject

import (
	"sort"
	"time"
)

// Totals are the accumulated whole seconds of one subject. Only the fields
// matching the subject's kind are ever non-zero, except the indeterminate ones.
type Totals struct {
	Up          uint64
	Down        uint64
	Unreachable uint64

	OK       uint64
	Warning  uint64
	Unknown  uint64
	Critical uint64

	ScheduledUp          uint64
	ScheduledDown        uint64
	ScheduledUnreachable uint64

	ScheduledOK       uint64
	ScheduledWarning  uint64
	ScheduledUnknown  uint64
	ScheduledCritical uint64

	// ScheduledIndeterminate is downtime during which the state was unknown.
	ScheduledIndeterminate uint64

	IndeterminateNoData     uint64
	IndeterminateNotRunning uint64
}

// Add credits d seconds to the running total of a concrete state. It
// reports false for sentinels, which have no total of their own.
func (t *Totals) Add(s State, d uint64) bool {
	p := t.stateField(s)
	if p == nil {
		return false
	}
	*p += d
	return true
}

// AddScheduled credits d seconds of scheduled downtime spent in state s.
// Sentinels go to ScheduledIndeterminate.
func (t *Totals) AddScheduled(s State, d uint64) {
	if p := t.scheduledField(s); p != nil {
		*p += d
		return
	}
	t.ScheduledIndeterminate += d
}

// Time returns the total for a concrete state.
func (t *Totals) Time(s State) uint64 {
	if p := t.stateField(s); p != nil {
		return *p
	}
	return 0
}

// Scheduled returns the scheduled sub-total for a concrete state.
func (t *Totals) Scheduled(s State) uint64 {
	if p := t.scheduledField(s); p != nil {
		return *p
	}
	return 0
}

// Unscheduled returns the part of a state's total outside scheduled downtime.
func (t *Totals) Unscheduled(s State) uint64 {
	total, sched := t.Time(s), t.Scheduled(s)
	if sched > total {
		return 0
	}
	return total - sched
}

// Determinate is the sum of all concrete state totals.
func (t *Totals) Determinate() uint64 {
	return t.Up + t.Down + t.Unreachable + t.OK + t.Warning + t.Unknown + t.Critical
}

// Indeterminate is the sum of both indeterminate reasons.
func (t *Totals) Indeterminate() uint64 {
	return t.IndeterminateNoData + t.IndeterminateNotRunning
}

func (t *Totals) stateField(s State) *uint64 {
	switch s {
	case HostUp:
		return &t.Up
	case HostDown:
		return &t.Down
	case HostUnreachable:
		return &t.Unreachable
	case ServiceOK:
		return &t.OK
	case ServiceWarning:
		return &t.Warning
	case ServiceUnknown:
		return &t.Unknown
	case ServiceCritical:
		return &t.Critical
	}
	return nil
}

func (t *Totals) scheduledField(s State) *uint64 {
	switch s {
	case HostUp:
		return &t.ScheduledUp
	case HostDown:
		return &t.ScheduledDown
	case HostUnreachable:
		return &t.ScheduledUnreachable
	case ServiceOK:
		return &t.ScheduledOK
	case ServiceWarning:
		return &t.ScheduledWarning
	case ServiceUnknown:
		return &t.ScheduledUnknown
	case ServiceCritical:
		return &t.ScheduledCritical
	}
	return nil
}

// Subject is a host, or a service on a host, being reported on.
type Subject struct {
	Kind    Kind
	Host    string
	Service string

	// Events is sorted by time; equal timestamps keep insertion order.
	Events []*StateEvent

	// Downtime is sorted the same way as Events.
	Downtime []*DowntimeEvent

	// LastKnownState is the most recently attributed concrete state.
	LastKnownState State

	Totals Totals

	EarliestTime  time.Time
	EarliestState State
	LatestTime    time.Time
	LatestState   State

	// HasData is set by reconstruction when concrete evidence was found.
	HasData bool

	seq          uint64
	lastAppended uint64
}

// New returns an empty subject. Service is ignored for hosts.
func New(kind Kind, host, service string) *Subject {
	if kind == KindHost {
		service = ""
	}
	return &Subject{Kind: kind, Host: host, Service: service}
}

// Name is "host" for hosts and "host;service" for services.
func (s *Subject) Name() string {
	if s.Kind == KindService {
		return s.Host + ";" + s.Service
	}
	return s.Host
}

// States lists the concrete states a subject of this kind can be in.
func (s *Subject) States() []State {
	if s.Kind == KindService {
		return ServiceStates
	}
	return HostStates
}

// DefaultState is the neutral state: UP for hosts, OK for services.
func (s *Subject) DefaultState() State {
	if s.Kind == KindService {
		return ServiceOK
	}
	return HostUp
}

// AddEvent inserts a state event before the first existing event with a
// strictly later timestamp, or appends it. The stored copy is returned.
func (s *Subject) AddEvent(ev StateEvent) *StateEvent {
	s.seq++
	ev.Seq = s.seq
	if ev.Entry.IsConcrete() {
		ev.Processed = ev.Entry
	} else {
		ev.Processed = NoData
	}
	stored := &ev

	i := sort.Search(len(s.Events), func(i int) bool {
		return s.Events[i].Time.After(ev.Time)
	})
	s.Events = append(s.Events, nil)
	copy(s.Events[i+1:], s.Events[i:])
	s.Events[i] = stored

	if !ev.Synthetic {
		s.lastAppended = ev.Seq
	}
	return stored
}

// AddDowntime records a downtime marker anchored to the most recently
// appended state event.
func (s *Subject) AddDowntime(t time.Time, kind DowntimeKind) *DowntimeEvent {
	ev := &DowntimeEvent{Time: t, Kind: kind, Anchor: s.lastAppended}

	i := sort.Search(len(s.Downtime), func(i int) bool {
		return s.Downtime[i].Time.After(t)
	})
	s.Downtime = append(s.Downtime, nil)
	copy(s.Downtime[i+1:], s.Downtime[i:])
	s.Downtime[i] = ev
	return ev
}

// IndexOf returns the position of the event with the given Seq, or -1.
func (s *Subject) IndexOf(seq uint64) int {
	if seq == 0 {
		return -1
	}
	for i, ev := range s.Events {
		if ev.Seq == seq {
			return i
		}
	}
	return -1
}

// Reset discards everything a previous reconstruction produced: synthetic
// events, processed states, totals and bounds. Ingested events stay.
func (s *Subject) Reset() {
	kept := s.Events[:0]
	for _, ev := range s.Events {
		if ev.Synthetic {
			continue
		}
		if ev.Entry.IsConcrete() {
			ev.Processed = ev.Entry
		} else {
			ev.Processed = NoData
		}
		kept = append(kept, ev)
	}
	for i := len(kept); i < len(s.Events); i++ {
		s.Events[i] = nil
	}
	s.Events = kept

	s.LastKnownState = NoData
	s.Totals = Totals{}
	s.EarliestTime, s.LatestTime = time.Time{}, time.Time{}
	s.EarliestState, s.LatestState = NoData, NoData
	s.HasData = false
}
