package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chilemetrics/chilemetrics/agent/internal/config"
	"github.com/chilemetrics/chilemetrics/agent/internal/encoder"
	"github.com/chilemetrics/chilemetrics/agent/internal/mapper"
	"github.com/chilemetrics/chilemetrics/agent/internal/source"
	"github.com/chilemetrics/chilemetrics/pkg/types"
)

var (
	// ErrAllSourcesFailed is the cycle error when no source returned data.
	ErrAllSourcesFailed = errors.New("pipeline: all sources failed")

	// ErrCycleTimeout is the cycle error when cfg.CycleTimeout expired.
	ErrCycleTimeout = errors.New("pipeline: cycle deadline exceeded")
)

// Pusher delivers an encoded batch. *remote.Writer implements it.
type Pusher interface {
	Push(ctx context.Context, p encoder.Payload) error
}

// Observer is told about every finished cycle.
type Observer interface {
	Observe(r *Report)
}

// SourceResult is the tagged outcome of one source fetch: Records when Err
// is nil, otherwise the failure.
type SourceResult struct {
	Source   string
	Records  []types.Record
	Err      error
	Duration time.Duration
}

// OK reports whether the fetch succeeded.
func (r SourceResult) OK() bool { return r.Err == nil }

// Report describes a finished cycle.
type Report struct {
	Outcome   Outcome
	StartedAt time.Time
	Duration  time.Duration

	// Trace lists the states the cycle went through, ending in StateDone.
	Trace []State

	// Sources holds one result per client, in client order.
	Sources []SourceResult

	// Samples is the batch handed to the pusher; nil when nothing was pushed.
	Samples  []types.Sample
	Warnings []mapper.Warning
	Pushed   bool

	// Err is the cause of a Failure.
	Err error
}

// Failed returns the names of the sources that failed.
func (r *Report) Failed() []string {
	var out []string
	for _, s := range r.Sources {
		if !s.OK() {
			out = append(out, s.Source)
		}
	}
	return out
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers obs to receive the Report of every cycle.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator drives collection cycles. It holds no state between cycles.
type Orchestrator struct {
	timeout   time.Duration
	clients   []source.Client
	pusher    Pusher
	observers []Observer
	now       func() time.Time
}

// New returns an Orchestrator for the given clients and pusher. Only
// cfg.CycleTimeout is read; clients and pusher are built by the caller.
func New(cfg *config.Config, clients []source.Client, pusher Pusher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		timeout: cfg.CycleTimeout,
		clients: clients,
		pusher:  pusher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one full cycle and returns its Report. It never returns nil.
func (o *Orchestrator) Run(ctx context.Context) *Report {
	rep := &Report{StartedAt: o.now(), Trace: []State{StateIdle}}
	defer o.finish(rep)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	rep.enter(StateCollecting)
	rep.Sources = o.collect(ctx)
	if o.expired(ctx, rep) {
		return rep
	}

	ok := 0
	for _, s := range rep.Sources {
		if s.OK() {
			ok++
			continue
		}
		slog.Warn("pipeline: source failed", "source", s.Source, "err", s.Err)
	}
	if ok == 0 {
		rep.fail(ErrAllSourcesFailed)
		return rep
	}
	partial := ok < len(rep.Sources)

	rep.enter(StateMapping)
	var batch []types.Sample
	for _, s := range rep.Sources {
		if !s.OK() {
			continue
		}
		res := mapper.Map(s.Records, rep.StartedAt)
		batch = append(batch, res.Samples...)
		rep.Warnings = append(rep.Warnings, res.Warnings...)
	}
	for _, w := range rep.Warnings {
		slog.Warn("pipeline: record dropped", "warning", w.String())
	}
	if len(batch) == 0 {
		slog.Warn("pipeline: no samples to push")
		rep.succeed(partial)
		return rep
	}

	payload, err := encoder.Encode(batch)
	if err != nil {
		rep.fail(fmt.Errorf("pipeline: encode: %w", err))
		return rep
	}

	rep.enter(StatePushing)
	if err := o.pusher.Push(ctx, payload); err != nil {
		if o.expired(ctx, rep) {
			return rep
		}
		rep.fail(fmt.Errorf("pipeline: push: %w", err))
		return rep
	}
	rep.Samples = batch
	rep.Pushed = true
	rep.succeed(partial)
	return rep
}

// collect fetches every source concurrently. Each goroutine writes only its
// own slot, and source errors never cancel the siblings.
func (o *Orchestrator) collect(ctx context.Context) []SourceResult {
	results := make([]SourceResult, len(o.clients))
	var g errgroup.Group
	for i, c := range o.clients {
		i, c := i, c
		g.Go(func() error {
			start := o.now()
			records, err := c.Fetch(ctx)
			results[i] = SourceResult{
				Source:   c.Name(),
				Records:  records,
				Err:      err,
				Duration: o.now().Sub(start),
			}
			if err == nil {
				slog.Debug("pipeline: source fetched", "source", c.Name(), "records", len(records))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// expired marks rep failed with ErrCycleTimeout when the cycle deadline has
// passed. Collected data is discarded.
func (o *Orchestrator) expired(ctx context.Context, rep *Report) bool {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return false
	}
	rep.Samples = nil
	rep.fail(fmt.Errorf("%w after %s", ErrCycleTimeout, o.timeout))
	return true
}

func (o *Orchestrator) finish(rep *Report) {
	rep.Duration = o.now().Sub(rep.StartedAt)
	rep.enter(StateDone)

	attrs := []any{
		"outcome", rep.Outcome.String(),
		"samples", len(rep.Samples),
		"warnings", len(rep.Warnings),
		"failed_sources", rep.Failed(),
		"duration", rep.Duration,
	}
	if rep.Err != nil {
		slog.Error("pipeline: cycle failed", append(attrs, "err", rep.Err)...)
	} else {
		slog.Info("pipeline: cycle finished", attrs...)
	}

	for _, obs := range o.observers {
		obs.Observe(rep)
	}
}

func (r *Report) enter(s State) {
	r.Trace = append(r.Trace, s)
}

func (r *Report) fail(err error) {
	r.Outcome = Failure
	r.Err = err
}

func (r *Report) succeed(partial bool) {
	if partial {
		r.Outcome = PartialSuccess
	} else {
		r.Outcome = Success
	}
}
