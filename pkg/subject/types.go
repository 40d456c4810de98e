// Package subject holds the hosts and services an availability report is
// computed for, together with their state and downtime timelines.
package subject

import (
	"strings"
	"time"
)

// Kind distinguishes host subjects from service subjects.
type Kind int

const (
	KindHost Kind = iota
	KindService
)

func (k Kind) String() string {
	if k == KindService {
		return "service"
	}
	return "host"
}

// State is either a concrete monitoring status or a sentinel that needs to
// be resolved before time can be attributed to it.
type State int

const (
	// NoData means nothing is known about the interval.
	NoData State = iota
	// ProgramStart marks the monitoring process starting or restarting.
	ProgramStart
	// ProgramEnd marks the monitoring process shutting down.
	ProgramEnd

	HostUp
	HostDown
	HostUnreachable

	ServiceOK
	ServiceWarning
	ServiceUnknown
	ServiceCritical

	// Current is only meaningful as an assumed initial state: it asks for
	// the live status of the subject at report time.
	Current
)

var stateNames = map[State]string{
	NoData:          "NO_DATA",
	ProgramStart:    "PROGRAM_START",
	ProgramEnd:      "PROGRAM_END",
	HostUp:          "UP",
	HostDown:        "DOWN",
	HostUnreachable: "UNREACHABLE",
	ServiceOK:       "OK",
	ServiceWarning:  "WARNING",
	ServiceUnknown:  "UNKNOWN",
	ServiceCritical: "CRITICAL",
	Current:         "CURRENT",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "INVALID"
}

// IsConcrete reports whether s is a real host or service status.
func (s State) IsConcrete() bool {
	return s >= HostUp && s <= ServiceCritical
}

// IsSentinel reports whether s is NO_DATA or a program lifecycle marker.
func (s State) IsSentinel() bool {
	return s == NoData || s == ProgramStart || s == ProgramEnd
}

// Kind returns the subject kind a concrete state belongs to.
func (s State) Kind() Kind {
	if s >= ServiceOK && s <= ServiceCritical {
		return KindService
	}
	return KindHost
}

// HostStates lists the concrete host states in display order.
var HostStates = []State{HostUp, HostDown, HostUnreachable}

// ServiceStates lists the concrete service states in display order.
var ServiceStates = []State{ServiceOK, ServiceWarning, ServiceUnknown, ServiceCritical}

// ParseState maps a textual state token from a log line or configuration
// to a concrete state for the given kind. RECOVERY maps to UP or OK.
func ParseState(kind Kind, token string) (State, bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if kind == KindHost {
		switch token {
		case "UP", "RECOVERY":
			return HostUp, true
		case "DOWN":
			return HostDown, true
		case "UNREACHABLE":
			return HostUnreachable, true
		}
		return NoData, false
	}
	switch token {
	case "OK", "RECOVERY":
		return ServiceOK, true
	case "WARNING":
		return ServiceWarning, true
	case "UNKNOWN":
		return ServiceUnknown, true
	case "CRITICAL":
		return ServiceCritical, true
	}
	return NoData, false
}

// StateType records whether a state change was SOFT or HARD.
type StateType int

const (
	Hard StateType = iota
	Soft
)

func (t StateType) String() string {
	if t == Soft {
		return "SOFT"
	}
	return "HARD"
}

// StateEvent is one entry of a subject's state timeline.
type StateEvent struct {
	// Seq identifies the event within its subject. It grows with every
	// insertion and is never reused.
	Seq uint64

	Time time.Time

	// Entry is the concrete state or sentinel read from the log.
	Entry State

	Type StateType

	Info string

	// Processed is the concrete state attributed to the interval starting
	// at this event. Only valid after reconstruction has run.
	Processed State

	// Synthetic events are inserted by reconstruction (seeding) and are
	// removed again before a recompute.
	Synthetic bool
}

// DowntimeKind identifies a scheduled downtime marker.
type DowntimeKind int

const (
	HostDowntimeStart DowntimeKind = iota
	HostDowntimeEnd
	ServiceDowntimeStart
	ServiceDowntimeEnd
)

var downtimeNames = map[DowntimeKind]string{
	HostDowntimeStart:    "HOST_DOWNTIME_START",
	HostDowntimeEnd:      "HOST_DOWNTIME_END",
	ServiceDowntimeStart: "SERVICE_DOWNTIME_START",
	ServiceDowntimeEnd:   "SERVICE_DOWNTIME_END",
}

func (k DowntimeKind) String() string {
	return downtimeNames[k]
}

// IsStart reports whether the marker opens a downtime.
func (k DowntimeKind) IsStart() bool {
	return k == HostDowntimeStart || k == ServiceDowntimeStart
}

// IsHostScope reports whether the marker was declared at the host level.
func (k DowntimeKind) IsHostScope() bool {
	return k == HostDowntimeStart || k == HostDowntimeEnd
}

// DowntimeEvent is one entry of a subject's downtime timeline.
type DowntimeEvent struct {
	Time time.Time
	Kind DowntimeKind

	// Anchor is the Seq of the state event most recently appended to the
	// subject when this marker was recorded. Zero means none.
	Anchor uint64
}
