package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandGlobs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.log")
	if err := os.WriteFile(file, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := ExpandGlobs([]string{file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != file {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, file)
	}
}

func TestExpandGlobs_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.log", "b.log", "c.txt"}
	for _, f := range files {
		path := filepath.Join(dir, f)
		if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	pattern := filepath.Join(dir, "*.log")
	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("ExpandGlobs() returned %d files, want 2", len(result))
	}
}

func TestExpandGlobs_NoMatch(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	// Should return the pattern as-is when no match
	if len(result) != 1 || result[0] != pattern {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, pattern)
	}
}

func TestExpandGlobs_Deduplication(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.log")
	if err := os.WriteFile(file, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	// Same file via different paths/patterns
	result, err := ExpandGlobs([]string{file, file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ExpandGlobs() returned %d files, want 1 (deduplicated)", len(result))
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	if err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestExpandGlobs_MultiplePatterns(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"a.log":        dir,
		"b.log":        dir,
		"subdir/c.log": dir,
	}
	for name, base := range files {
		path := filepath.Join(base, name)
		if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	patterns := []string{
		filepath.Join(dir, "*.log"),
		filepath.Join(dir, "subdir", "*.log"),
	}
	result, err := ExpandGlobs(patterns)
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 3 {
		t.Errorf("ExpandGlobs() returned %d files, want 3", len(result))
	}
}

func TestExpandGlobs_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	archives := filepath.Join(dir, "archives")
	if err := os.Mkdir(archives, 0755); err != nil {
		t.Fatal(err)
	}
	names := []string{
		"archives/nagios-12-31-2023-00.log",
		"archives/nagios-01-02-2024-00.log",
		"archives/nagios-01-01-2024-00.log",
		"nagios.log",
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := ExpandGlobs([]string{
		filepath.Join(archives, "*.log"),
		filepath.Join(dir, "nagios.log"),
	})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "nagios.log"),
		filepath.Join(archives, "nagios-01-02-2024-00.log"),
		filepath.Join(archives, "nagios-01-01-2024-00.log"),
		filepath.Join(archives, "nagios-12-31-2023-00.log"),
	}
	if len(result) != len(want) {
		t.Fatalf("ExpandGlobs() = %v, want %v", result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, result[i], want[i])
		}
	}
}

func TestArchiveStamp(t *testing.T) {
	tests := []struct {
		path string
		want time.Time
		ok   bool
	}{
		{"/var/log/nagios/archives/nagios-01-15-2024-00.log", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"nagios-07-04-2023-13.log", time.Date(2023, 7, 4, 13, 0, 0, 0, time.UTC), true},
		{"/var/log/nagios/nagios.log", time.Time{}, false},
		{"nagios-13-45-2024-00.log", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ArchiveStamp(tt.path)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("ArchiveStamp(%q) = %v, %v, want %v, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExpandGlobs_EmptyInput(t *testing.T) {
	result, err := ExpandGlobs([]string{})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ExpandGlobs([]) = %v, want empty", result)
	}
}
