package parser

import (
	"strings"
)

// statePrefixes maps the message prefixes that carry state evidence to
// the record kind they produce.
var statePrefixes = []struct {
	prefix string
	kind   RecordKind
}{
	{"HOST ALERT:", RecordHostState},
	{"INITIAL HOST STATE:", RecordHostState},
	{"CURRENT HOST STATE:", RecordHostState},
	{"SERVICE ALERT:", RecordServiceState},
	{"INITIAL SERVICE STATE:", RecordServiceState},
	{"CURRENT SERVICE STATE:", RecordServiceState},
	{"HOST DOWNTIME ALERT:", RecordHostDowntime},
	{"SERVICE DOWNTIME ALERT:", RecordServiceDowntime},
}

var (
	startMarkers = []string{" starting...", " restarting..."}
	endMarkers   = []string{" shutting down...", "Bailing out"}
)

// minFields is the number of semicolon separated fields a line of each
// kind needs before it is usable.
var minFields = map[RecordKind]int{
	RecordHostState:       3, // host;state;type[;attempt;output]
	RecordServiceState:    4, // host;service;state;type[;attempt;output]
	RecordHostDowntime:    2, // host;STARTED|STOPPED|CANCELLED[;comment]
	RecordServiceDowntime: 3, // host;service;STARTED|STOPPED|CANCELLED[;comment]
}

// ParseLine matches a timestamped line against the known vocabulary. It
// returns false for anything unrecognised and for malformed lines.
func ParseLine(line *ParsedLine) (*Record, bool) {
	msg := line.Message

	for _, p := range statePrefixes {
		if !strings.HasPrefix(msg, p.prefix) {
			continue
		}
		rec := &Record{
			Kind:      p.kind,
			Timestamp: line.Timestamp,
			Source:    line.Source,
			LineNum:   line.LineNum,
		}
		if !parseFields(rec, strings.TrimSpace(msg[len(p.prefix):])) {
			return nil, false
		}
		return rec, true
	}

	kind := RecordKind(0)
	if containsAny(msg, startMarkers) {
		kind = RecordProgramStart
	} else if containsAny(msg, endMarkers) {
		kind = RecordProgramEnd
	}
	if kind == 0 {
		return nil, false
	}
	return &Record{
		Kind:      kind,
		Timestamp: line.Timestamp,
		Info:      msg,
		Source:    line.Source,
		LineNum:   line.LineNum,
	}, true
}

func parseFields(rec *Record, body string) bool {
	fields := strings.Split(body, ";")
	if len(fields) < minFields[rec.Kind] {
		return false
	}

	rec.Host = fields[0]
	rest := fields[1:]
	if rec.Kind == RecordServiceState || rec.Kind == RecordServiceDowntime {
		rec.Service = fields[1]
		rest = fields[2:]
	}
	if rec.Host == "" {
		return false
	}

	switch rec.Kind {
	case RecordHostState, RecordServiceState:
		rec.State = strings.TrimSpace(rest[0])
		rec.Soft = strings.EqualFold(strings.TrimSpace(rest[1]), "SOFT")
		if len(rest) > 3 {
			rec.Info = strings.Join(rest[3:], ";")
		}
	case RecordHostDowntime, RecordServiceDowntime:
		rec.Started = strings.EqualFold(strings.TrimSpace(rest[0]), "STARTED")
		if len(rest) > 1 {
			rec.Info = strings.TrimSpace(strings.Join(rest[1:], ";"))
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
