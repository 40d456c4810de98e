package availability

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/availog/pkg/status"
	"github.com/ccollicutt/availog/pkg/subject"
	"github.com/ccollicutt/availog/pkg/timeperiod"
)

// Engine runs reconstruction and the downtime overlay for every subject of
// a registry. Subjects share no mutable state once ingestion is complete,
// so they are computed in parallel.
type Engine struct {
	params      Params
	concurrency int
	logger      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNow overrides the reference time used for open intervals.
func WithNow(now time.Time) EngineOption {
	return func(e *Engine) {
		e.params.Now = now
	}
}

// WithConcurrency bounds how many subjects are computed at once.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithStatus sets the live-status lookup used for current-state seeding.
func WithStatus(l status.Lookup) EngineOption {
	return func(e *Engine) {
		e.params.Status = l
	}
}

// WithTimeperiod restricts accounting to a weekly timeperiod.
func WithTimeperiod(tp *timeperiod.Weekly) EngineOption {
	return func(e *Engine) {
		e.params.Timeperiod = tp
	}
}

// NewEngine creates an engine for one report window.
func NewEngine(window Window, policy Policy, opts ...EngineOption) (*Engine, error) {
	if window.End.Before(window.Start) {
		return nil, fmt.Errorf("report window ends (%s) before it starts (%s)",
			window.End.Format(time.RFC3339), window.Start.Format(time.RFC3339))
	}

	e := &Engine{
		params: Params{
			Window: window,
			Policy: policy,
			Now:    time.Now(),
		},
		concurrency: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the parameters shared by every subject computation.
func (e *Engine) Params() Params {
	return e.params
}

// Summary describes one engine run.
type Summary struct {
	// WindowSeconds is the accountable length of the window.
	WindowSeconds uint64

	// Computed, NoEvidence and NotStarted count subjects by outcome.
	Computed   int
	NoEvidence int
	NotStarted int

	StartTime time.Time
	EndTime   time.Time
}

// Run computes totals for every subject of the registry.
func (e *Engine) Run(ctx context.Context, reg *subject.Registry) (*Summary, error) {
	p := e.params
	sum := &Summary{
		WindowSeconds: p.Window.Seconds(p.Timeperiod),
		StartTime:     time.Now(),
	}

	if p.Status == nil && (p.Policy.InitialHostState == subject.Current || p.Policy.InitialServiceState == subject.Current) {
		e.logger.Warn("current state assumed but no status lookup configured; initial state will not be assumed")
	}

	subjects := reg.Subjects()
	outcomes := make([]Outcome, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, s := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = Reconstruct(s, p)
			if outcomes[i] == Computed {
				Overlay(s, p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing availability: %w", err)
	}

	for i, o := range outcomes {
		switch o {
		case Computed:
			sum.Computed++
		case NoEvidence:
			sum.NoEvidence++
			e.logger.Debug("no state evidence for subject", zap.String("subject", subjects[i].Name()))
		case NotStarted:
			sum.NotStarted++
		}
	}
	if sum.NotStarted > 0 {
		e.logger.Info("report window starts in the future",
			zap.Time("start", p.Window.Start), zap.Time("now", p.Now))
	}

	sum.EndTime = time.Now()
	e.logger.Debug("availability computed",
		zap.Int("subjects", len(subjects)),
		zap.Int("computed", sum.Computed),
		zap.Int("no_evidence", sum.NoEvidence),
		zap.Duration("took", sum.EndTime.Sub(sum.StartTime)))
	return sum, nil
}
