// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Kind identifies one measurable player attribution.
type Kind int

// Supported attribution kinds. The order is the rehydration order.
const (
	Break Kind = iota
	Build
	PlayTicks
	Vote
)

// KindCount is the number of supported attribution kinds.
const KindCount = int(Vote) + 1

var kindNames = [...]string{
	Break:     "break",
	Build:     "build",
	PlayTicks: "play_ticks",
	Vote:      "vote_count",
}

// Kinds returns every attribution kind in a fixed order.
func Kinds() []Kind {
	return []Kind{Break, Build, PlayTicks, Vote}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k >= Break && k <= Vote
}

// String returns the wire name of the kind, e.g. "play_ticks".
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a wire name to a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Value is the constraint satisfied by every attribution value type.
type Value interface {
	~uint64
}

// BreakCount is the number of blocks a player broke.
type BreakCount uint64

// BuildCount is the number of blocks a player placed.
type BuildCount uint64

// PlayTickCount is the number of game ticks a player was online.
type PlayTickCount uint64

// VoteCount is the number of votes a player cast.
type VoteCount uint64

// Record is one player's value for one attribution kind.
type Record[V Value] struct {
	Player Player
	Value  V
}

// RankedRecord pairs a record with its 1-based competition rank.
type RankedRecord[V Value] struct {
	Rank   int
	Record Record[V]
}

// Entry returns the kind-erased form of r.
func (r RankedRecord[V]) Entry() Entry {
	return Entry{
		Rank:   r.Rank,
		Player: r.Record.Player,
		Value:  uint64(r.Record.Value),
	}
}

// Entry is a ranked row with the attribution value widened to uint64.
// It is used where the kind is only known at run time.
type Entry struct {
	Rank   int
	Player Player
	Value  uint64
}
