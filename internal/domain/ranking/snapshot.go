// Package ranking holds fully materialized, pre-sorted attribution rankings
// that are swapped wholesale on refresh and read without external calls.
package ranking

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
)

// Snapshot is one complete, immutable materialization of a ranking.
//
// Ordering: value DESC, then player UUID ASC. The UUID tie-breaker keeps
// rebuilds deterministic regardless of the order the provider returned.
type Snapshot[V model.Value] struct {
	records []model.RankedRecord[V]
	index   map[uuid.UUID]int
}

// Build sorts and ranks records into a new snapshot. The input slice is not
// modified. A record set containing the same player twice is rejected with
// ErrDuplicatePlayer.
func Build[V model.Value](records []model.Record[V]) (*Snapshot[V], error) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b model.Record[V]) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return bytes.Compare(a.Player.UUID[:], b.Player.UUID[:])
	})

	s := &Snapshot[V]{
		records: make([]model.RankedRecord[V], len(sorted)),
		index:   make(map[uuid.UUID]int, len(sorted)),
	}
	for i, rec := range sorted {
		if _, dup := s.index[rec.Player.UUID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, rec.Player.UUID)
		}
		s.index[rec.Player.UUID] = i

		// Competition ranking: ties share the rank of the first tied
		// element, the next distinct value ranks at its 1-based position.
		rank := i + 1
		if i > 0 && sorted[i-1].Value == rec.Value {
			rank = s.records[i-1].Rank
		}
		s.records[i] = model.RankedRecord[V]{Rank: rank, Record: rec}
	}
	return s, nil
}

// Len returns the number of ranked records.
func (s *Snapshot[V]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Page returns a copy of the records in [offset, offset+limit), clamped to
// the end of the snapshot. Out-of-range or non-positive arguments yield an
// empty, non-nil slice.
func (s *Snapshot[V]) Page(offset, limit int) []model.RankedRecord[V] {
	n := s.Len()
	if offset < 0 || limit <= 0 || offset >= n {
		return []model.RankedRecord[V]{}
	}
	end := n
	if limit < n-offset {
		end = offset + limit
	}
	return slices.Clone(s.records[offset:end])
}

// Lookup returns the ranked record of the given player.
func (s *Snapshot[V]) Lookup(id uuid.UUID) (model.RankedRecord[V], bool) {
	if s == nil {
		return model.RankedRecord[V]{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return model.RankedRecord[V]{}, false
	}
	return s.records[i], true
}

// All returns a copy of every ranked record in rank order.
func (s *Snapshot[V]) All() []model.RankedRecord[V] {
	if s == nil {
		return []model.RankedRecord[V]{}
	}
	return slices.Clone(s.records)
}
