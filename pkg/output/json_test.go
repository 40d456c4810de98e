package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestJSONFormatter_Format(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{})
	report := createTestReport(t)

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed Report
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if parsed.Summary.InBreach != 2 {
		t.Errorf("InBreach = %d, want 2", parsed.Summary.InBreach)
	}
	if len(parsed.Subjects) != 3 {
		t.Fatalf("Subjects = %d, want 3", len(parsed.Subjects))
	}
	if parsed.Subjects[1].States[1].Scheduled != 1800 {
		t.Errorf("web1 scheduled DOWN = %d, want 1800", parsed.Subjects[1].States[1].Scheduled)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["subjects"]; !ok {
		t.Error("expected snake_case top-level keys")
	}
}

func TestJSONFormatter_Format_Quiet(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{Quiet: true})
	report := createTestReport(t)

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed Summary
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if parsed.Subjects != 3 || parsed.NoData != 1 {
		t.Errorf("Summary = %+v", parsed)
	}
}
