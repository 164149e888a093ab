package seed

import (
	"testing"
	"time"

	"github.com/okian/ranked/internal/domain/model"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestGeneratorIsReproducible(t *testing.T) {
	a := NewGenerator(42, now, 30)
	b := NewGenerator(42, now, 30)

	pa, pb := a.Players(50), b.Players(50)
	for i := range pa {
		if pa[i].UUID != pb[i].UUID || pa[i].Name != pb[i].Name || !pa[i].LastQuit.Equal(pb[i].LastQuit) {
			t.Fatalf("player %d differs between equal seeds", i)
		}
	}
	ea, eb := a.Events(pa, 500), b.Events(pb, 500)
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("event %d differs between equal seeds", i)
		}
	}

	other := NewGenerator(43, now, 30).Players(50)
	if other[0].UUID == pa[0].UUID {
		t.Error("different seeds produced the same first player")
	}
}

func TestGeneratorBounds(t *testing.T) {
	g := NewGenerator(1, now, 10)
	players := g.Players(200)

	ids := make(map[string]bool, len(players))
	for _, p := range players {
		if p.UUID.Version() != 4 {
			t.Errorf("player %s is not a v4 uuid", p.UUID)
		}
		if ids[p.UUID.String()] {
			t.Errorf("duplicate player %s", p.UUID)
		}
		ids[p.UUID.String()] = true
	}

	oldest := now.Add(-10 * dayLength)
	seenKinds := map[model.Kind]bool{}
	for i, e := range g.Events(players, 5000) {
		if !ids[e.PlayerUUID.String()] {
			t.Fatalf("event %d references unknown player", i)
		}
		if !e.Kind.Valid() {
			t.Fatalf("event %d has invalid kind %d", i, e.Kind)
		}
		if e.Amount == 0 {
			t.Fatalf("event %d has zero amount", i)
		}
		if e.Kind == model.Vote && e.Amount > 3 {
			t.Fatalf("event %d votes %d", i, e.Amount)
		}
		if e.RecordedAt.After(now) || e.RecordedAt.Before(oldest) {
			t.Fatalf("event %d at %s outside window", i, e.RecordedAt)
		}
		seenKinds[e.Kind] = true
	}
	if len(seenKinds) != model.KindCount {
		t.Errorf("only %d kinds generated", len(seenKinds))
	}
}

func TestGeneratorWithoutPlayers(t *testing.T) {
	if events := NewGenerator(1, now, 0).Events(nil, 10); events != nil {
		t.Errorf("expected no events, got %d", len(events))
	}
}
