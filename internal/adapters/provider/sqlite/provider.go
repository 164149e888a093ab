package sqlite

import (
	"context"
	"time"

	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/rehydrate"
)

// Provider serves one attribution kind from the store.
type Provider[V model.Value] struct {
	store *Store
	kind  model.Kind
	now   func() time.Time
}

var _ rehydrate.Provider[model.BreakCount] = (*Provider[model.BreakCount])(nil)

// ProviderOption configures a Provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	now func() time.Time
}

// WithClock sets the time the windows are measured back from.
func WithClock(now func() time.Time) ProviderOption {
	return func(c *providerConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewProvider returns a provider of kind backed by store.
func NewProvider[V model.Value](store *Store, kind model.Kind, opts ...ProviderOption) *Provider[V] {
	cfg := providerConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Provider[V]{store: store, kind: kind, now: cfg.now}
}

// Fetch aggregates every player's events inside the window of tr.
func (p *Provider[V]) Fetch(ctx context.Context, tr model.TimeRange) ([]model.Record[V], error) {
	totals, err := p.store.Aggregate(ctx, p.kind, tr.Since(p.now()))
	if err != nil {
		return nil, err
	}
	out := make([]model.Record[V], len(totals))
	for i, t := range totals {
		out[i] = model.Record[V]{Player: t.Player, Value: V(t.Value)}
	}
	return out, nil
}

// Providers returns a bundle serving every kind from store.
func Providers(store *Store, opts ...ProviderOption) rehydrate.Providers {
	return rehydrate.Providers{
		Break:     NewProvider[model.BreakCount](store, model.Break, opts...),
		Build:     NewProvider[model.BuildCount](store, model.Build, opts...),
		PlayTicks: NewProvider[model.PlayTickCount](store, model.PlayTicks, opts...),
		Vote:      NewProvider[model.VoteCount](store, model.Vote, opts...),
	}
}
