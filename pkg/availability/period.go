package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Periods lists the named report periods accepted by ParsePeriod.
func Periods() []string {
	names := make([]string, 0, len(periods))
	for name := range periods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var periods = map[string]func(now time.Time) (time.Time, time.Time){
	"today": func(now time.Time) (time.Time, time.Time) {
		return midnight(now), now
	},
	"yesterday": func(now time.Time) (time.Time, time.Time) {
		today := midnight(now)
		return today.AddDate(0, 0, -1), today
	},
	"last24hours": func(now time.Time) (time.Time, time.Time) {
		return now.Add(-24 * time.Hour), now
	},
	"thisweek": func(now time.Time) (time.Time, time.Time) {
		return weekStart(now), now
	},
	"lastweek": func(now time.Time) (time.Time, time.Time) {
		ws := weekStart(now)
		return ws.AddDate(0, 0, -7), ws
	},
	"last7days": func(now time.Time) (time.Time, time.Time) {
		today := midnight(now)
		return today.AddDate(0, 0, -7), today
	},
	"thismonth": func(now time.Time) (time.Time, time.Time) {
		return monthStart(now), now
	},
	"lastmonth": func(now time.Time) (time.Time, time.Time) {
		ms := monthStart(now)
		return ms.AddDate(0, -1, 0), ms
	},
	"last31days": func(now time.Time) (time.Time, time.Time) {
		today := midnight(now)
		return today.AddDate(0, 0, -31), today
	},
	"thisyear": func(now time.Time) (time.Time, time.Time) {
		return yearStart(now), now
	},
	"lastyear": func(now time.Time) (time.Time, time.Time) {
		ys := yearStart(now)
		return ys.AddDate(-1, 0, 0), ys
	},
}

// ParsePeriod resolves a named period relative to now. Calendar boundaries
// are local midnights in loc; weeks start on Sunday.
func ParsePeriod(name string, now time.Time, loc *time.Location) (Window, error) {
	fn, ok := periods[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Window{}, fmt.Errorf("unknown report period %q (use one of %s)", name, strings.Join(Periods(), ", "))
	}
	if loc != nil {
		now = now.In(loc)
	}
	start, end := fn(now)
	return Window{Start: start, End: end}, nil
}

// ParseTime accepts RFC3339 or integer seconds since the epoch.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).In(locationOrLocal(loc)), nil
	}
	t, err := time.ParseInLocation(time.RFC3339, s, locationOrLocal(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (use RFC3339 or unix seconds): %w", s, err)
	}
	return t, nil
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	return midnight(t).AddDate(0, 0, -int(t.Weekday()))
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
