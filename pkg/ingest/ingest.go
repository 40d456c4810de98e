// Package ingest scans monitoring log archives and distributes the state,
// downtime and program lifecycle evidence they contain to report subjects.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/availog/pkg/parser"
	"github.com/ccollicutt/availog/pkg/subject"
)

// DefaultConcurrency is the number of archives read in parallel.
const DefaultConcurrency = 4

// Stats summarises one ingestion run.
type Stats struct {
	// Archives is the number of archives that were read.
	Archives int

	// Skipped lists archives that could not be read.
	Skipped []string

	// Lines is the number of timestamped lines seen.
	Lines int

	// Recognized is the number of lines matching the known vocabulary.
	Recognized int

	// Routed is the number of records delivered to at least one subject.
	Routed int

	// SoftDiscarded counts SOFT state lines dropped by policy.
	SoftDiscarded int
}

// Ingester routes parsed records into a subject registry. Writes to the
// registry happen on the calling goroutine only.
type Ingester struct {
	registry    *subject.Registry
	extractor   *parser.TimestampExtractor
	includeSoft bool
	downtime    bool
	concurrency int
	logger      *zap.Logger

	stats Stats
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithSoftStates keeps SOFT state changes instead of discarding them.
func WithSoftStates(include bool) Option {
	return func(in *Ingester) {
		in.includeSoft = include
	}
}

// WithDowntime controls whether downtime markers are recorded.
func WithDowntime(enabled bool) Option {
	return func(in *Ingester) {
		in.downtime = enabled
	}
}

// WithConcurrency bounds how many archives are read at once.
func WithConcurrency(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// DefaultTimestampPattern matches the "[1705312800] ..." prefix.
var DefaultTimestampPattern = regexp.MustCompile(`^\[(\d+)\]`)

// New creates an Ingester. A nil extractor uses the epoch-seconds format.
func New(reg *subject.Registry, extractor *parser.TimestampExtractor, opts ...Option) *Ingester {
	if extractor == nil {
		extractor = parser.NewTimestampExtractor(DefaultTimestampPattern, parser.LayoutUnix)
	}
	in := &Ingester{
		registry:    reg,
		extractor:   extractor,
		downtime:    true,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Stats returns the counters accumulated so far.
func (in *Ingester) Stats() Stats {
	return in.stats
}

// Ingest reads the given archives (newest first, as archive selection
// returns them) and applies every recognised line to the registry in
// chronological order. Unreadable archives are skipped; only context
// cancellation is returned as an error.
func (in *Ingester) Ingest(ctx context.Context, paths []string) error {
	contents := make([][]*parser.ParsedLine, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			src := parser.NewFileSource([]string{path}, in.extractor.Pattern(), in.extractor.Layout())
			defer src.Close()

			lines, err := parser.ReadAll(gctx, src)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures[i] = err
				return nil
			}
			contents[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reading archives: %w", err)
	}

	// Oldest archive first so equal timestamps keep their natural order.
	sources := make([]parser.LogSource, 0, len(paths))
	for i := len(paths) - 1; i >= 0; i-- {
		if failures[i] != nil {
			in.stats.Skipped = append(in.stats.Skipped, paths[i])
			in.logger.Warn("skipping unreadable archive",
				zap.String("path", paths[i]), zap.Error(failures[i]))
			continue
		}
		in.stats.Archives++
		sources = append(sources, parser.NewSliceSource(contents[i]))
	}

	merged := parser.NewMergedSource(sources...)
	defer merged.Close()

	for {
		line, err := merged.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("merging archives: %w", err)
		}
		in.stats.Lines++

		rec, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		in.stats.Recognized++
		if in.Apply(rec) {
			in.stats.Routed++
		}
	}

	in.logger.Debug("ingestion finished",
		zap.Int("archives", in.stats.Archives),
		zap.Int("skipped", len(in.stats.Skipped)),
		zap.Int("lines", in.stats.Lines),
		zap.Int("recognized", in.stats.Recognized),
		zap.Int("routed", in.stats.Routed))
	return nil
}

// Apply routes one record. It reports whether any subject received it.
func (in *Ingester) Apply(rec *parser.Record) bool {
	switch rec.Kind {
	case parser.RecordProgramStart:
		return in.broadcast(rec, subject.ProgramStart)
	case parser.RecordProgramEnd:
		return in.broadcast(rec, subject.ProgramEnd)
	case parser.RecordHostState:
		return in.state(rec, subject.KindHost)
	case parser.RecordServiceState:
		return in.state(rec, subject.KindService)
	case parser.RecordHostDowntime:
		return in.hostDowntime(rec)
	case parser.RecordServiceDowntime:
		return in.serviceDowntime(rec)
	}
	return false
}

func (in *Ingester) broadcast(rec *parser.Record, marker subject.State) bool {
	if in.registry.Len() == 0 {
		return false
	}
	in.registry.Broadcast(subject.StateEvent{
		Time:  rec.Timestamp,
		Entry: marker,
		Type:  subject.Hard,
		Info:  rec.Info,
	})
	return true
}

func (in *Ingester) state(rec *parser.Record, kind subject.Kind) bool {
	s := in.registry.Find(kind, rec.Host, rec.Service)
	if s == nil {
		return false
	}

	stateType := subject.Hard
	if rec.Soft {
		if !in.includeSoft {
			in.stats.SoftDiscarded++
			return false
		}
		stateType = subject.Soft
	}

	// Unrecognised tokens are kept as NO_DATA evidence.
	state, _ := subject.ParseState(kind, rec.State)
	s.AddEvent(subject.StateEvent{
		Time:  rec.Timestamp,
		Entry: state,
		Type:  stateType,
		Info:  rec.Info,
	})
	return true
}

// hostDowntime records the marker on the host and on every service of the
// host, since a host downtime also suspends its services.
func (in *Ingester) hostDowntime(rec *parser.Record) bool {
	if !in.downtime {
		return false
	}
	kind := subject.HostDowntimeEnd
	if rec.Started {
		kind = subject.HostDowntimeStart
	}

	routed := false
	if s := in.registry.Find(subject.KindHost, rec.Host, ""); s != nil {
		s.AddDowntime(rec.Timestamp, kind)
		routed = true
	}
	for _, svc := range in.registry.ServicesOf(rec.Host) {
		svc.AddDowntime(rec.Timestamp, kind)
		routed = true
	}
	return routed
}

func (in *Ingester) serviceDowntime(rec *parser.Record) bool {
	if !in.downtime {
		return false
	}
	s := in.registry.Find(subject.KindService, rec.Host, rec.Service)
	if s == nil {
		return false
	}
	kind := subject.ServiceDowntimeEnd
	if rec.Started {
		kind = subject.ServiceDowntimeStart
	}
	s.AddDowntime(rec.Timestamp, kind)
	return true
}
