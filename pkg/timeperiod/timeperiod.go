// Package timeperiod computes how many seconds of a time span fall inside a
// recurring weekly schedule of time-of-day ranges.
package timeperiod

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SecondsPerDay is the nominal length of a day. A range ending here means
// "until midnight", whatever the real length of the day is.
const SecondsPerDay = 86400

var (
	// ErrInvalidRange is returned for ranges that cannot be parsed or are empty.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrOverlap is returned when two ranges on the same weekday overlap.
	ErrOverlap = errors.New("overlapping time ranges")
)

// Range is a half-open [Start, End) interval expressed in seconds of day.
type Range struct {
	Start int
	End   int
}

// String renders the range as HH:MM-HH:MM.
func (r Range) String() string {
	return formatClock(r.Start) + "-" + formatClock(r.End)
}

// Weekly is a recurring weekly schedule. Days is indexed by time.Weekday
// (Sunday = 0) and each day holds sorted, disjoint ranges.
type Weekly struct {
	Name     string
	Days     [7][]Range
	Location *time.Location
}

// AllDay returns a schedule that covers every second of every day.
func AllDay(name string, loc *time.Location) *Weekly {
	w := &Weekly{Name: name, Location: loc}
	for d := range w.Days {
		w.Days[d] = []Range{{Start: 0, End: SecondsPerDay}}
	}
	return w
}

// Parse builds a schedule from weekday names ("monday", "tue", ...) mapped
// to comma separated HH:MM-HH:MM ranges. Weekdays that are absent contribute
// nothing.
func Parse(name string, days map[string]string, loc *time.Location) (*Weekly, error) {
	w := &Weekly{Name: name, Location: loc}
	for day, expr := range days {
		wd, err := parseWeekday(day)
		if err != nil {
			return nil, err
		}
		ranges, err := ParseRanges(expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", day, err)
		}
		w.Days[wd] = ranges
	}
	return w, nil
}

// ParseRanges parses "09:00-12:00,13:00-17:00". The result is sorted by
// start; overlapping ranges are rejected.
func ParseRanges(expr string) ([]Range, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var ranges []Range
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		start, err := parseClock(bounds[0])
		if err != nil {
			return nil, err
		}
		end, err := parseClock(bounds[1])
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("%w: %q ends before it starts", ErrInvalidRange, part)
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}

	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Start < ranges[i-1].End {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, ranges[i-1], ranges[i])
		}
	}
	return ranges, nil
}

// Elapsed returns the number of seconds in [start, end]. With a nil schedule
// that is end-start; otherwise only seconds inside the schedule count.
// Inverted or empty spans yield 0.
func Elapsed(start, end time.Time, w *Weekly) uint64 {
	if w == nil {
		d := end.Unix() - start.Unix()
		if d <= 0 {
			return 0
		}
		return uint64(d)
	}
	return w.Elapsed(start, end)
}

// Elapsed walks the span one calendar day at a time, starting at local
// midnight of start, and sums the overlap of each day's slice of the span
// with that weekday's ranges. Range bounds are wall-clock times, so on a
// day with a DST change "09:00-17:00" still means 09:00 to 17:00 local.
func (w *Weekly) Elapsed(start, end time.Time) uint64 {
	s, e := start.Unix(), end.Unix()
	if e <= s {
		return 0
	}

	loc := w.Location
	if loc == nil {
		loc = time.Local
	}

	from := start.In(loc)
	midnight := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	var total uint64
	for midnight.Unix() < e {
		next := time.Date(midnight.Year(), midnight.Month(), midnight.Day()+1, 0, 0, 0, 0, loc)
		base := midnight.Unix()
		dayLen := next.Unix() - base

		dayStart := int64(0)
		if s > base {
			dayStart = s - base
		}
		dayEnd := e - base
		if dayEnd > dayLen {
			dayEnd = dayLen
		}

		for _, r := range w.Days[midnight.Weekday()] {
			rs, re := clockOffset(midnight, r.Start), clockOffset(midnight, r.End)
			if r.End >= SecondsPerDay {
				re = dayLen
			}
			lo := max(rs, dayStart)
			hi := min(re, dayEnd)
			if hi > lo {
				total += uint64(hi - lo)
			}
		}

		midnight = next
	}
	return total
}

// clockOffset returns the seconds from midnight to the wall-clock time sec
// seconds of day on midnight's date.
func clockOffset(midnight time.Time, sec int) int64 {
	t := time.Date(midnight.Year(), midnight.Month(), midnight.Day(),
		sec/3600, sec%3600/60, sec%60, 0, midnight.Location())
	return t.Unix() - midnight.Unix()
}

// WeeklySeconds is the total scheduled time in one week.
func (w *Weekly) WeeklySeconds() int {
	total := 0
	for _, day := range w.Days {
		for _, r := range day {
			total += r.End - r.Start
		}
	}
	return total
}

func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidRange, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidRange, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidRange, s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidRange, s)
	}
	return h*3600 + m*60, nil
}

func formatClock(sec int) string {
	return fmt.Sprintf("%02d:%02d", sec/3600, (sec%3600)/60)
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}
