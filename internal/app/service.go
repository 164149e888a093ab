// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/ranking"
	"github.com/okian/ranked/internal/domain/rehydrate"
	"github.com/okian/ranked/pkg/logger"
	"github.com/okian/ranked/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

// Service implements the API dependencies for the ranking cache.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     *ranking.Store
	providers rehydrate.Providers
	loop      *rehydrate.Loop

	// Configuration
	interval       time.Duration
	fetchTimeout   time.Duration
	concurrency    int
	tracerProvider trace.TracerProvider

	// State
	started bool
	cancel  context.CancelFunc
	done    chan error
	stopped chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProviders sets the attribution providers the loop reads from.
func WithProviders(p rehydrate.Providers) Option {
	return func(s *Service) {
		s.providers = p
	}
}

// WithStore shares an existing ranking store instead of creating one.
func WithStore(store *ranking.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRehydrateInterval sets the pause between two rehydration passes.
func WithRehydrateInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFetchTimeout bounds every provider fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRehydrateConcurrency sets how many kinds are refreshed in parallel.
func WithRehydrateConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTracerProvider sets the provider the loop creates its tracer from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracerProvider = tp
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		store:        ranking.NewStore(),
		interval:     rehydrate.DefaultInterval,
		fetchTimeout: rehydrate.DefaultFetchTimeout,
		concurrency:  rehydrate.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the providers and launches the rehydration loop in the
// background. The first pass runs immediately; rankings stay empty until it
// completes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.providers.Validate(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.logger.Info(ctx, "starting ranking service...")

	opts := []rehydrate.Option{
		rehydrate.WithInterval(s.interval),
		rehydrate.WithFetchTimeout(s.fetchTimeout),
		rehydrate.WithConcurrency(s.concurrency),
		rehydrate.WithLogger(s.logger.Named("rehydrate")),
	}
	if s.tracerProvider != nil {
		opts = append(opts, rehydrate.WithTracerProvider(s.tracerProvider))
	}
	s.loop = rehydrate.New(s.store, s.providers, opts...)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan error, 1)
	s.stopped = make(chan struct{})

	go func(loop *rehydrate.Loop, done chan<- error, stopped chan<- struct{}) {
		defer close(stopped)
		err := loop.Run(loopCtx)
		if err != nil {
			metrics.RecordErrorByComponent("rehydrate", "fatal")
		}
		done <- err
		close(done)
	}(s.loop, s.done, s.stopped)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Duration("interval", s.interval),
		logger.Duration("fetchTimeout", s.fetchTimeout),
		logger.Int("concurrency", s.concurrency),
	)
	return nil
}

// Done returns a channel that receives the loop's terminal error (nil after a
// clean Stop) and is then closed. It is nil before Start.
func (s *Service) Done() <-chan error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Stop cancels the rehydration loop and waits for it to return.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping ranking service...")
	cancel, stopped := s.cancel, s.stopped
	s.started = false
	s.mu.Unlock()

	cancel()
	<-stopped
	s.logger.Info(context.Background(), "ranking service stopped")
}

// Store returns the ranking store shared with the loop.
func (s *Service) Store() *ranking.Store {
	return s.store
}

// Page returns the rows in [offset, offset+limit) of a ranking.
func (s *Service) Page(ctx context.Context, kind model.Kind, tr model.TimeRange, offset, limit int) ([]model.Entry, error) {
	view, err := s.store.RankingFor(kind, tr)
	if err != nil {
		metrics.RecordQuery(kind.String(), tr.String(), "invalid")
		return nil, err
	}
	page := view.Page(offset, limit)
	metrics.RecordQuery(kind.String(), tr.String(), "ok")
	if s.logger != nil {
		s.logger.Debug(ctx, "ranking page served",
			logger.String("kind", kind.String()),
			logger.String("time_range", tr.String()),
			logger.Int("offset", offset),
			logger.Int("rows", len(page)),
		)
	}
	return page, nil
}

// PlayerRank returns the row of one player. It returns ErrNotFound when the
// player has no value in the ranking.
func (s *Service) PlayerRank(_ context.Context, kind model.Kind, tr model.TimeRange, id uuid.UUID) (model.Entry, error) {
	view, err := s.store.RankingFor(kind, tr)
	if err != nil {
		metrics.RecordQuery(kind.String(), tr.String(), "invalid")
		return model.Entry{}, err
	}
	entry, ok := view.Find(id)
	if !ok {
		metrics.RecordQuery(kind.String(), tr.String(), "not_found")
		return model.Entry{}, fmt.Errorf("%w: record with %s for kind=%s, time-range=%s not found",
			ErrNotFound, id, kind, tr)
	}
	metrics.RecordQuery(kind.String(), tr.String(), "ok")
	return entry, nil
}

// SearchPlayers returns up to limit players whose name contains query,
// ignoring case. Players are drawn from the all-time rankings of every kind
// and sorted by name.
func (s *Service) SearchPlayers(_ context.Context, query string, limit int) ([]model.Player, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []model.Player{}, nil
	}

	seen := make(map[uuid.UUID]model.Player)
	for _, kind := range model.Kinds() {
		view, err := s.store.RankingFor(kind, model.All)
		if err != nil {
			return nil, err
		}
		for _, e := range view.Page(0, view.Len()) {
			if _, ok := seen[e.Player.UUID]; ok {
				continue
			}
			if strings.Contains(strings.ToLower(e.Player.Name), query) {
				seen[e.Player.UUID] = e.Player
			}
		}
	}

	out := make([]model.Player, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Player) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			strings.Compare(a.UUID.String(), b.UUID.String()),
		)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	metrics.RecordQuery("search", model.All.String(), "ok")
	return out, nil
}

// Healthy reports whether the rehydration loop is running.
func (s *Service) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.loop != nil && s.loop.Status().Running
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"interval":     s.interval.String(),
		"fetchTimeout": s.fetchTimeout.String(),
		"concurrency":  s.concurrency,
	}

	sizes := make(map[string]map[string]int, model.KindCount)
	for kind, byRange := range s.store.Sizes() {
		row := make(map[string]int, len(byRange))
		for tr, n := range byRange {
			row[tr.String()] = n
		}
		sizes[kind.String()] = row
	}
	stats["rankings"] = sizes

	if s.loop != nil {
		st := s.loop.Status()
		loop := map[string]any{
			"running":   st.Running,
			"passes":    st.Passes,
			"refreshed": st.LastPass.Refreshed,
			"failed":    st.LastPass.Failed(),
		}
		if !st.LastPass.Finished.IsZero() {
			loop["lastPassStarted"] = st.LastPass.Started.UTC().Format(time.RFC3339Nano)
			loop["lastPassFinished"] = st.LastPass.Finished.UTC().Format(time.RFC3339Nano)
		}
		if len(st.LastPass.Failures) > 0 {
			failures := make([]map[string]string, 0, len(st.LastPass.Failures))
			for _, f := range st.LastPass.Failures {
				failures = append(failures, map[string]string{
					"kind":       f.Kind.String(),
					"time_range": f.TimeRange.String(),
					"error":      f.Err.Error(),
				})
			}
			loop["failures"] = failures
		}
		if st.Err != nil {
			loop["error"] = st.Err.Error()
		}
		stats["loop"] = loop
	}
	return stats
}

// IsFatal reports whether err ended the loop abnormally.
func IsFatal(err error) bool {
	return errors.Is(err, rehydrate.ErrLoopFatal)
}
