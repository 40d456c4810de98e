package timeperiod

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func workHours(t *testing.T) *Weekly {
	t.Helper()
	days := map[string]string{}
	for _, d := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		days[d] = "09:00-17:00"
	}
	w, err := Parse("workhours", days, time.UTC)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return w
}

func TestElapsed_NoTimeperiod(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  uint64
	}{
		{"one hour", start, start.Add(time.Hour), 3600},
		{"zero length", start, start, 0},
		{"inverted", start.Add(time.Hour), start, 0},
		{"multi day", start, start.Add(50 * time.Hour), 180000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Elapsed(tt.start, tt.end, nil); got != tt.want {
				t.Errorf("Elapsed() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestElapsed_WorkHours(t *testing.T) {
	w := workHours(t)
	midnight := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  uint64
	}{
		{"48 hours from midnight", midnight, midnight.Add(48 * time.Hour), 57600},
		{"48 hours from noon", midnight.Add(12 * time.Hour), midnight.Add(60 * time.Hour), 57600},
		{"night only", midnight.Add(18 * time.Hour), midnight.Add(32 * time.Hour), 0},
		{"straddles opening", midnight.Add(8 * time.Hour), midnight.Add(10 * time.Hour), 3600},
		{"inside range", midnight.Add(10 * time.Hour), midnight.Add(11 * time.Hour), 3600},
		{"inverted", midnight.Add(11 * time.Hour), midnight.Add(10 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Elapsed(tt.start, tt.end, w); got != tt.want {
				t.Errorf("Elapsed() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestElapsed_DaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	days := map[string]string{"sunday": "09:00-17:00"}
	w, err := Parse("sunday", days, loc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name  string
		month time.Month
		day   int
	}{
		{"spring forward", time.March, 10},
		{"fall back", time.November, 3},
		{"no change", time.March, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Date(2024, tt.month, tt.day, 9, 0, 0, 0, loc)
			end := time.Date(2024, tt.month, tt.day, 17, 0, 0, 0, loc)
			if got := w.Elapsed(start, end); got != 28800 {
				t.Errorf("Elapsed(09:00, 17:00) = %d, want 28800", got)
			}

			midnight := time.Date(2024, tt.month, tt.day, 0, 0, 0, 0, loc)
			next := time.Date(2024, tt.month, tt.day+1, 0, 0, 0, 0, loc)
			if got := w.Elapsed(midnight, next); got != 28800 {
				t.Errorf("Elapsed(whole day) = %d, want 28800", got)
			}
		})
	}
}

func TestElapsed_EmptyWeekday(t *testing.T) {
	w, err := Parse("weekdays", map[string]string{"monday": "00:00-24:00"}, time.UTC)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// 2024-01-14 is a Sunday, 2024-01-15 a Monday.
	sunday := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	if got := w.Elapsed(sunday, sunday.Add(24*time.Hour)); got != 0 {
		t.Errorf("Sunday Elapsed() = %d, want 0", got)
	}
	if got := w.Elapsed(sunday, sunday.Add(48*time.Hour)); got != SecondsPerDay {
		t.Errorf("Sunday+Monday Elapsed() = %d, want %d", got, SecondsPerDay)
	}
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []Range
		wantErr error
	}{
		{"empty", "", nil, nil},
		{"single", "09:00-17:00", []Range{{32400, 61200}}, nil},
		{"sorted", "13:00-17:00, 09:00-12:00", []Range{{32400, 43200}, {46800, 61200}}, nil},
		{"until midnight", "22:00-24:00", []Range{{79200, 86400}}, nil},
		{"overlap", "09:00-12:00,11:00-13:00", nil, ErrOverlap},
		{"backwards", "17:00-09:00", nil, ErrInvalidRange},
		{"garbage", "nine to five", nil, ErrInvalidRange},
		{"bad minute", "09:75-10:00", nil, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRanges(tt.expr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseRanges() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRanges() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseRanges() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("range[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse_UnknownWeekday(t *testing.T) {
	if _, err := Parse("bad", map[string]string{"funday": "09:00-10:00"}, time.UTC); err == nil {
		t.Error("Parse() expected error for unknown weekday")
	}
}

func TestWeeklySeconds(t *testing.T) {
	if got := workHours(t).WeeklySeconds(); got != 7*8*3600 {
		t.Errorf("WeeklySeconds() = %d, want %d", got, 7*8*3600)
	}
}

func TestPropertyAllDayMatchesFlatDifference(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	all := AllDay("24x7", time.UTC)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	props.Property("24x7 schedule equals end-start", prop.ForAll(
		func(offset int64, length int64) bool {
			start := time.Unix(base+offset, 0)
			end := start.Add(time.Duration(length) * time.Second)
			return Elapsed(start, end, all) == Elapsed(start, end, nil)
		},
		gen.Int64Range(0, 365*SecondsPerDay),
		gen.Int64Range(-SecondsPerDay, 30*SecondsPerDay),
	))

	props.Property("schedule never exceeds flat difference", prop.ForAll(
		func(offset int64, length int64) bool {
			w := AllDay("x", time.UTC)
			w.Days[time.Wednesday] = []Range{{Start: 3600, End: 7200}}
			start := time.Unix(base+offset, 0)
			end := start.Add(time.Duration(length) * time.Second)
			return Elapsed(start, end, w) <= Elapsed(start, end, nil)
		},
		gen.Int64Range(0, 365*SecondsPerDay),
		gen.Int64Range(0, 30*SecondsPerDay),
	))

	props.TestingRun(t)
}
