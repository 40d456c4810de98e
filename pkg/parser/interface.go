package parser

import (
	"context"
	"io"
)

// LogSource provides an iterator over parsed log lines.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next parsed log line.
	// Returns io.EOF when no more lines are available.
	// Lines that cannot be parsed (e.g., no timestamp) are skipped.
	Next(ctx context.Context) (*ParsedLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// SliceSource is a LogSource over lines already held in memory.
type SliceSource struct {
	lines []*ParsedLine
	pos   int
}

// NewSliceSource creates a LogSource that yields lines in order.
func NewSliceSource(lines []*ParsedLine) *SliceSource {
	return &SliceSource{lines: lines}
}

// Next returns the next line, or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (*ParsedLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.lines) {
		return nil, io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error {
	return nil
}
