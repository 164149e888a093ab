package ranking

import (
	"fmt"

	"github.com/okian/ranked/internal/domain/model"
)

// TimeRangeCache holds one independently locked Ranking per time range.
type TimeRangeCache[V model.Value] struct {
	rankings [model.TimeRangeCount]*Ranking[V]
}

// NewTimeRangeCache creates a cache with an empty ranking for every range.
func NewTimeRangeCache[V model.Value]() *TimeRangeCache[V] {
	c := &TimeRangeCache[V]{}
	for _, tr := range model.TimeRanges() {
		c.rankings[tr] = NewRanking[V]()
	}
	return c
}

// For returns the ranking of the given time range. tr must be valid; the
// query layer rejects unknown selectors before routing.
func (c *TimeRangeCache[V]) For(tr model.TimeRange) *Ranking[V] {
	return c.rankings[tr]
}

// Sizes returns the number of ranked players per time range.
func (c *TimeRangeCache[V]) Sizes() map[model.TimeRange]int {
	out := make(map[model.TimeRange]int, model.TimeRangeCount)
	for _, tr := range model.TimeRanges() {
		out[tr] = c.rankings[tr].Len()
	}
	return out
}

// Store aggregates the rankings of every attribution kind. It is shared by
// reference between the rehydration loop (writer) and query handlers
// (readers).
type Store struct {
	Break     *TimeRangeCache[model.BreakCount]
	Build     *TimeRangeCache[model.BuildCount]
	PlayTicks *TimeRangeCache[model.PlayTickCount]
	Vote      *TimeRangeCache[model.VoteCount]
}

// NewStore creates a store whose rankings are all empty.
func NewStore() *Store {
	return &Store{
		Break:     NewTimeRangeCache[model.BreakCount](),
		Build:     NewTimeRangeCache[model.BuildCount](),
		PlayTicks: NewTimeRangeCache[model.PlayTickCount](),
		Vote:      NewTimeRangeCache[model.VoteCount](),
	}
}

// RankingFor returns the ranking of a (kind, time range) pair.
func (s *Store) RankingFor(kind model.Kind, tr model.TimeRange) (View, error) {
	if !tr.Valid() {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownTimeRange, tr)
	}
	switch kind {
	case model.Break:
		return s.Break.For(tr), nil
	case model.Build:
		return s.Build.For(tr), nil
	case model.PlayTicks:
		return s.PlayTicks.For(tr), nil
	case model.Vote:
		return s.Vote.For(tr), nil
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}
}

// Sizes returns the number of ranked players for every pair.
func (s *Store) Sizes() map[model.Kind]map[model.TimeRange]int {
	return map[model.Kind]map[model.TimeRange]int{
		model.Break:     s.Break.Sizes(),
		model.Build:     s.Build.Sizes(),
		model.PlayTicks: s.PlayTicks.Sizes(),
		model.Vote:      s.Vote.Sizes(),
	}
}
