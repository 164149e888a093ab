package ranking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
)

// View is the kind-erased read surface of a ranking. The query layer uses it
// when the attribution kind is only known at run time.
type View interface {
	// Page returns the rows in [offset, offset+limit), clamped to the end.
	Page(offset, limit int) []model.Entry
	// Find returns the row of a player, if present.
	Find(id uuid.UUID) (model.Entry, bool)
	// Len returns the number of ranked players.
	Len() int
	// UpdatedAt returns when the current snapshot was installed.
	UpdatedAt() time.Time
}

// Ranking is a lockable holder of the current snapshot for one
// (attribution kind, time range) pair. The zero value is an empty ranking.
type Ranking[V model.Value] struct {
	mu        sync.RWMutex
	current   *Snapshot[V]
	updatedAt time.Time
}

var _ View = (*Ranking[model.BreakCount])(nil)

// NewRanking creates an empty ranking.
func NewRanking[V model.Value]() *Ranking[V] {
	return &Ranking[V]{}
}

// Rebuild replaces the ranking with the given record set. Sorting and rank
// assignment happen before the write lock is taken, so the critical section
// is a pointer swap. On error the previous snapshot is kept.
func (r *Ranking[V]) Rebuild(records []model.Record[V]) error {
	s, err := Build(records)
	if err != nil {
		return err
	}
	r.Replace(s, time.Now())
	return nil
}

// Replace installs a prebuilt snapshot and records at as its install time.
func (r *Ranking[V]) Replace(s *Snapshot[V], at time.Time) {
	r.mu.Lock()
	r.current = s
	r.updatedAt = at
	r.mu.Unlock()
}

// Snapshot returns the current snapshot. Snapshots are immutable, so the
// result may be read after the lock is released.
func (r *Ranking[V]) Snapshot() *Snapshot[V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Paginate returns a copy of the ranked records in [offset, offset+limit).
// The range is clamped to the end of the ranking: an offset at or past the
// end returns an empty slice, never an error.
func (r *Ranking[V]) Paginate(offset, limit int) []model.RankedRecord[V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Page(offset, limit)
}

// Lookup returns the ranked record of a player in the current snapshot.
func (r *Ranking[V]) Lookup(id uuid.UUID) (model.RankedRecord[V], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Lookup(id)
}

// Len returns the number of ranked records.
func (r *Ranking[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Len()
}

// UpdatedAt returns when the current snapshot was installed; zero if never.
func (r *Ranking[V]) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}

// Page implements View.
func (r *Ranking[V]) Page(offset, limit int) []model.Entry {
	page := r.Paginate(offset, limit)
	out := make([]model.Entry, len(page))
	for i, rr := range page {
		out[i] = rr.Entry()
	}
	return out
}

// Find implements View.
func (r *Ranking[V]) Find(id uuid.UUID) (model.Entry, bool) {
	rr, ok := r.Lookup(id)
	if !ok {
		return model.Entry{}, false
	}
	return rr.Entry(), true
}
