// Package rehydrate periodically pulls complete record sets from attribution
// providers and swaps them into the ranking store.
package rehydrate

import (
	"context"
	"fmt"

	"github.com/okian/ranked/internal/domain/model"
)

// Provider returns the complete current record set of one attribution kind
// for a time range. Implementations must honour ctx cancellation; the loop
// bounds every call with a deadline.
type Provider[V model.Value] interface {
	Fetch(ctx context.Context, tr model.TimeRange) ([]model.Record[V], error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc[V model.Value] func(ctx context.Context, tr model.TimeRange) ([]model.Record[V], error)

// Fetch calls f.
func (f ProviderFunc[V]) Fetch(ctx context.Context, tr model.TimeRange) ([]model.Record[V], error) {
	return f(ctx, tr)
}

// Providers bundles one provider per attribution kind.
type Providers struct {
	Break     Provider[model.BreakCount]
	Build     Provider[model.BuildCount]
	PlayTicks Provider[model.PlayTickCount]
	Vote      Provider[model.VoteCount]
}

// Validate reports the first kind without a provider.
func (p Providers) Validate() error {
	missing := map[model.Kind]bool{
		model.Break:     p.Break == nil,
		model.Build:     p.Build == nil,
		model.PlayTicks: p.PlayTicks == nil,
		model.Vote:      p.Vote == nil,
	}
	for _, k := range model.Kinds() {
		if missing[k] {
			return fmt.Errorf("%w: kind=%s", ErrNoProvider, k)
		}
	}
	return nil
}
