package rehydrate

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/ranking"
	"github.com/okian/ranked/pkg/logger"
	"github.com/okian/ranked/pkg/metrics"
	"github.com/okian/ranked/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Report summarises one full pass.
type Report struct {
	Started   time.Time
	Finished  time.Time
	Refreshed int
	Failures  []*PairError
}

// Failed returns the number of skipped pairs.
func (r Report) Failed() int { return len(r.Failures) }

// Status is a point-in-time view of the loop for diagnostics.
type Status struct {
	Running  bool
	Passes   uint64
	LastPass Report
	// Err is the terminal error once Run has returned abnormally.
	Err error
}

// Loop refreshes every (kind, time range) ranking of a store from its
// provider. It is the single writer of the store.
type Loop struct {
	store     *ranking.Store
	providers Providers

	interval     time.Duration
	fetchTimeout time.Duration
	concurrency  int
	logger       logger.Logger
	now          func() time.Time
	tracer       trace.Tracer

	mu     sync.Mutex
	status Status
}

// New creates a loop writing into store.
func New(store *ranking.Store, providers Providers, opts ...Option) *Loop {
	l := &Loop{
		store:        store,
		providers:    providers,
		interval:     DefaultInterval,
		fetchTimeout: DefaultFetchTimeout,
		concurrency:  DefaultConcurrency,
		logger:       logger.Nop(),
		now:          time.Now,
		tracer:       telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run performs a pass immediately and then one pass per interval, measured
// from the end of the previous pass. It returns nil once ctx is cancelled
// and an error wrapping ErrLoopFatal if a pass panics.
func (l *Loop) Run(ctx context.Context) (err error) {
	l.setRunning(true)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v\n%s", ErrLoopFatal, r, debug.Stack())
		}
		l.finish(err)
	}()

	if err := l.providers.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrLoopFatal, err)
	}

	l.logger.Info(ctx, "rehydration loop started",
		logger.Duration("interval", l.interval),
		logger.Duration("fetch_timeout", l.fetchTimeout),
		logger.Int("concurrency", l.concurrency))

	for {
		if ctx.Err() != nil {
			l.logger.Info(ctx, "rehydration loop stopped")
			return nil
		}
		if _, err := l.Pass(ctx); err != nil {
			l.logger.Error(ctx, "rehydration loop aborted", logger.Error(err))
			return err
		}

		t := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			l.logger.Info(ctx, "rehydration loop stopped")
			return nil
		case <-t.C:
		}
	}
}

// Pass refreshes every pair once. Failed pairs are reported and keep their
// previous snapshot. The error is non-nil only for a panic inside a
// provider or the rebuild, wrapped in ErrLoopFatal.
func (l *Loop) Pass(ctx context.Context) (Report, error) {
	ctx, span := l.tracer.Start(ctx, "rehydrate.pass")
	defer span.End()

	report := Report{Started: l.now()}
	started := time.Now()

	var (
		mu        sync.Mutex
		refreshed int
		failures  [model.KindCount][]*PairError
	)
	collect := func(kind model.Kind) func(int, []*PairError) {
		return func(n int, errs []*PairError) {
			mu.Lock()
			defer mu.Unlock()
			refreshed += n
			failures[kind] = errs
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, kind := range model.Kinds() {
		done := collect(kind)
		g.Go(guard(func() {
			done(l.refreshKind(gctx, kind))
		}))
	}
	err := g.Wait()

	report.Finished = l.now()
	report.Refreshed = refreshed
	for _, errs := range failures {
		report.Failures = append(report.Failures, errs...)
	}

	metrics.RecordPass(time.Since(started), report.Failed())
	span.SetAttributes(
		attribute.Int("rehydrate.refreshed", report.Refreshed),
		attribute.Int("rehydrate.failed", report.Failed()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pass aborted")
		l.record(report)
		return report, err
	}

	fields := []logger.Field{
		logger.Int("refreshed", report.Refreshed),
		logger.Int("failed", report.Failed()),
		logger.Duration("took", time.Since(started)),
	}
	if report.Failed() > 0 {
		span.SetStatus(codes.Error, "some pairs failed")
		l.logger.Info(ctx, "rehydration pass finished with failures", fields...)
	} else {
		l.logger.Debug(ctx, "rehydration pass finished", fields...)
	}
	l.record(report)
	return report, nil
}

// guard turns a panic in fn into an ErrLoopFatal error.
func guard(fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: panic: %v\n%s", ErrLoopFatal, r, debug.Stack())
			}
		}()
		fn()
		return nil
	}
}

func (l *Loop) refreshKind(ctx context.Context, kind model.Kind) (int, []*PairError) {
	switch kind {
	case model.Break:
		return refreshAll(ctx, l, kind, l.store.Break, l.providers.Break)
	case model.Build:
		return refreshAll(ctx, l, kind, l.store.Build, l.providers.Build)
	case model.PlayTicks:
		return refreshAll(ctx, l, kind, l.store.PlayTicks, l.providers.PlayTicks)
	case model.Vote:
		return refreshAll(ctx, l, kind, l.store.Vote, l.providers.Vote)
	default:
		panic(fmt.Sprintf("rehydrate: no ranking for kind %s", kind))
	}
}

// refreshAll walks the time ranges of one kind in order.
func refreshAll[V model.Value](ctx context.Context, l *Loop, kind model.Kind, cache *ranking.TimeRangeCache[V], p Provider[V]) (int, []*PairError) {
	var (
		refreshed int
		failures  []*PairError
	)
	for _, tr := range model.TimeRanges() {
		if ctx.Err() != nil {
			break
		}
		if err := refreshPair(ctx, l, kind, tr, cache.For(tr), p); err != nil {
			failures = append(failures, &PairError{Kind: kind, TimeRange: tr, Err: err})
			continue
		}
		refreshed++
	}
	return refreshed, failures
}

// refreshPair fetches outside any lock, builds the snapshot, then swaps it
// in under the ranking's write lock.
func refreshPair[V model.Value](ctx context.Context, l *Loop, kind model.Kind, tr model.TimeRange, r *ranking.Ranking[V], p Provider[V]) (err error) {
	k, t := kind.String(), tr.String()
	ctx, span := l.tracer.Start(ctx, "rehydrate.fetch", trace.WithAttributes(
		attribute.String("ranked.kind", k),
		attribute.String("ranked.time_range", t),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refresh skipped")
		}
		span.End()
	}()

	if p == nil {
		return fmt.Errorf("%w: %w", ErrFetch, ErrNoProvider)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	start := time.Now()
	records, err := p.Fetch(fetchCtx, tr)
	metrics.RecordFetch(k, t, time.Since(start))
	if err != nil {
		reason := "fetch"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.RecordFetchError(k, t, reason)
		l.logger.Warn(ctx, "provider fetch failed, keeping previous ranking",
			logger.String("kind", k), logger.String("time_range", t), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}

	start = time.Now()
	snap, err := ranking.Build(records)
	metrics.RecordRebuild(k, time.Since(start))
	if err != nil {
		metrics.RecordFetchError(k, t, "build")
		l.logger.Warn(ctx, "provider returned unusable records, keeping previous ranking",
			logger.String("kind", k), logger.String("time_range", t), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}

	at := l.now()
	r.Replace(snap, at)
	metrics.RecordSwap(k, t, snap.Len(), at)
	span.SetAttributes(attribute.Int("ranked.records", snap.Len()))
	return nil
}

// Status returns a copy of the loop status.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.status
	s.LastPass.Failures = slices.Clone(s.LastPass.Failures)
	return s
}

func (l *Loop) setRunning(running bool) {
	l.mu.Lock()
	l.status.Running = running
	if running {
		l.status.Err = nil
	}
	l.mu.Unlock()
	metrics.SetLoopAlive(running)
}

func (l *Loop) finish(err error) {
	l.mu.Lock()
	l.status.Running = false
	l.status.Err = err
	l.mu.Unlock()
	metrics.SetLoopAlive(false)
}

func (l *Loop) record(r Report) {
	l.mu.Lock()
	l.status.Passes++
	l.status.LastPass = r
	l.mu.Unlock()
}
