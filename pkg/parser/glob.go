package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// archiveName matches the rotation stamp of an archived log,
// nagios-MM-DD-YYYY-HH.log.
var archiveName = regexp.MustCompile(`-(\d{2})-(\d{2})-(\d{4})-(\d{2})\.log$`)

// ArchiveStamp returns the rotation time encoded in an archive file name.
// It reports false for names without a stamp, such as the current log.
func ArchiveStamp(path string) (time.Time, bool) {
	m := archiveName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("01-02-2006-15", m[1]+"-"+m[2]+"-"+m[3]+"-"+m[4])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ExpandGlobs expands log paths and glob patterns into a deduplicated list,
// newest first: unstamped files (the current log) lead in name order,
// followed by rotated archives from the most recent rotation backwards.
// Patterns that match nothing are kept as literal paths so the reader can
// report them as missing.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, match := range matches {
			add(match)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		ti, oki := ArchiveStamp(result[i])
		tj, okj := ArchiveStamp(result[j])
		switch {
		case !oki && !okj:
			return result[i] < result[j]
		case oki != okj:
			return !oki
		case !ti.Equal(tj):
			return ti.After(tj)
		}
		return result[i] < result[j]
	})

	return result, nil
}
