// Package archive works out which rotated monitoring log archives cover a
// report window and where those archives live on disk.
package archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// maxArchives bounds the backwards search for very old timestamps.
const maxArchives = 100000

// ErrUnknownRotation is returned for unrecognised rotation methods.
var ErrUnknownRotation = errors.New("unknown log rotation method")

// Method is the log rotation schedule of the monitoring process.
type Method int

const (
	None Method = iota
	Hourly
	Daily
	Weekly
	Monthly
)

func (m Method) String() string {
	switch m {
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	}
	return "none"
}

// ParseMethod accepts both the single-letter form (n, h, d, w, m) and the
// full names.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "none":
		return None, nil
	case "h", "hourly":
		return Hourly, nil
	case "d", "daily":
		return Daily, nil
	case "w", "weekly":
		return Weekly, nil
	case "m", "monthly":
		return Monthly, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownRotation, s)
}

// Rotation describes when logs were rotated, in a given time zone.
type Rotation struct {
	Method   Method
	Location *time.Location
}

func (r Rotation) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Boundary returns the j-th most recent rotation time not after now.
// Boundary(now, 0) is the rotation that started the current log.
func (r Rotation) Boundary(now time.Time, j int) time.Time {
	loc := r.location()
	n := now.In(loc)
	y, m, d := n.Date()

	switch r.Method {
	case Hourly:
		top := time.Date(y, m, d, n.Hour(), 0, 0, 0, loc)
		return top.Add(-time.Duration(j) * time.Hour)
	case Daily:
		return time.Date(y, m, d-j, 0, 0, 0, 0, loc)
	case Weekly:
		return time.Date(y, m, d-int(n.Weekday())-7*j, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, m-time.Month(j), 1, 0, 0, 0, 0, loc)
	}
	return n
}

// ArchiveFor returns the archive that holds t. Archive 0 is the current
// log; archive k covers [Boundary(k), Boundary(k-1)).
func (r Rotation) ArchiveFor(now, t time.Time) int {
	if r.Method == None || !t.Before(now) {
		return 0
	}
	for k := 0; k < maxArchives; k++ {
		if !t.Before(r.Boundary(now, k)) {
			return k
		}
	}
	return maxArchives
}

// Select lists the archives to scan for [t1, t2], newest first: from the
// archive holding t2 down to the one holding t1, plus backtrack older
// archives to find the state in effect before t1.
func Select(r Rotation, now, t1, t2 time.Time, backtrack int) []int {
	newest := r.ArchiveFor(now, t2)
	oldest := r.ArchiveFor(now, t1)
	if r.Method != None && backtrack > 0 {
		oldest += backtrack
	}
	if oldest < newest {
		oldest = newest
	}

	ids := make([]int, 0, oldest-newest+1)
	for id := newest; id <= oldest; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Locator maps archive numbers to file paths using the classic naming
// scheme nagios-MM-DD-YYYY-HH.log, where the timestamp is the rotation
// that closed the archive.
type Locator struct {
	LogFile    string
	ArchiveDir string
	Rotation   Rotation
}

// Path returns the file holding archive id.
func (l Locator) Path(now time.Time, id int) string {
	if id <= 0 || l.Rotation.Method == None {
		return l.LogFile
	}
	closed := l.Rotation.Boundary(now, id-1)
	name := fmt.Sprintf("nagios-%02d-%02d-%d-%02d.log",
		int(closed.Month()), closed.Day(), closed.Year(), closed.Hour())
	return filepath.Join(l.ArchiveDir, name)
}

// Paths maps a list of archive numbers to file paths, preserving order.
func (l Locator) Paths(now time.Time, ids []int) []string {
	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, l.Path(now, id))
	}
	return paths
}
