// Package parser reads monitoring log archives and recognises the log line
// shapes that carry state, downtime and program lifecycle evidence.
package parser

import "time"

// ParsedLine represents a single log line with its timestamp split off.
type ParsedLine struct {
	// Raw is the original line content.
	Raw string

	// Message is the text following the timestamp.
	Message string

	// Timestamp is the parsed timestamp from the log line.
	Timestamp time.Time

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}

// RecordKind identifies the shape of a recognised log line.
type RecordKind int

const (
	// RecordProgramStart is a "starting..." or "restarting..." line.
	RecordProgramStart RecordKind = iota + 1

	// RecordProgramEnd is a "shutting down..." or "Bailing out" line.
	RecordProgramEnd

	// RecordHostState is a HOST ALERT or INITIAL/CURRENT HOST STATE line.
	RecordHostState

	// RecordServiceState is a SERVICE ALERT or INITIAL/CURRENT SERVICE STATE line.
	RecordServiceState

	// RecordHostDowntime is a HOST DOWNTIME ALERT line.
	RecordHostDowntime

	// RecordServiceDowntime is a SERVICE DOWNTIME ALERT line.
	RecordServiceDowntime
)

var recordKindNames = map[RecordKind]string{
	RecordProgramStart:    "program_start",
	RecordProgramEnd:      "program_end",
	RecordHostState:       "host_state",
	RecordServiceState:    "service_state",
	RecordHostDowntime:    "host_downtime",
	RecordServiceDowntime: "service_downtime",
}

func (k RecordKind) String() string {
	if name, ok := recordKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Record is a recognised log line.
type Record struct {
	Kind      RecordKind
	Timestamp time.Time

	// Host and Service identify the subject (Service is empty for host lines).
	Host    string
	Service string

	// State is the raw state token, e.g. DOWN, RECOVERY or CRITICAL.
	State string

	// Soft is set for SOFT state changes.
	Soft bool

	// Info is the plugin output or downtime comment.
	Info string

	// Started is set for downtime lines announcing the start of a downtime.
	Started bool

	Source  string
	LineNum int
}
