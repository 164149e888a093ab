package remote

import (
	"context"

	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/internal/domain/rehydrate"
)

// Provider serves one attribution kind through a Client.
type Provider[V model.Value] struct {
	client *Client
	kind   model.Kind
}

var _ rehydrate.Provider[model.VoteCount] = (*Provider[model.VoteCount])(nil)

// NewProvider returns a provider of kind backed by client.
func NewProvider[V model.Value](client *Client, kind model.Kind) *Provider[V] {
	return &Provider[V]{client: client, kind: kind}
}

// Fetch implements rehydrate.Provider.
func (p *Provider[V]) Fetch(ctx context.Context, tr model.TimeRange) ([]model.Record[V], error) {
	totals, err := p.client.Totals(ctx, p.kind, tr)
	if err != nil {
		return nil, err
	}
	out := make([]model.Record[V], len(totals))
	for i, t := range totals {
		out[i] = model.Record[V]{Player: t.Player, Value: V(t.Value)}
	}
	return out, nil
}

// Providers returns a bundle serving every kind through client.
func Providers(client *Client) rehydrate.Providers {
	return rehydrate.Providers{
		Break:     NewProvider[model.BreakCount](client, model.Break),
		Build:     NewProvider[model.BuildCount](client, model.Build),
		PlayTicks: NewProvider[model.PlayTickCount](client, model.PlayTicks),
		Vote:      NewProvider[model.VoteCount](client, model.Vote),
	}
}
