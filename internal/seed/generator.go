package seed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/adapters/provider/sqlite"
	"github.com/okian/ranked/internal/domain/model"
)

// Amount ranges per activity tier. Most events are small; a few are large so
// rankings get both ties and clear leaders.
const (
	tierCasual   = 0
	tierRegular  = 1
	tierHardcore = 2
	tierCount    = 3
)

var nameStems = []string{ //nolint:gochecknoglobals // fixed vocabulary
	"Creeper", "Ender", "Blaze", "Ghast", "Piglin", "Warden",
	"Axolotl", "Strider", "Allay", "Sniffer", "Golem", "Wither",
}

// amountRange is [min, min+span) for one kind and tier.
type amountRange struct {
	min  uint64
	span uint64
}

var amounts = [model.KindCount][tierCount]amountRange{ //nolint:gochecknoglobals // distribution table
	model.Break:     {{1, 10}, {10, 90}, {100, 900}},
	model.Build:     {{1, 10}, {10, 60}, {70, 500}},
	model.PlayTicks: {{20, 1200}, {1200, 36000}, {36000, 144000}},
	model.Vote:      {{1, 1}, {1, 2}, {1, 3}},
}

// Generator produces a reproducible data set from a seed.
type Generator struct {
	rng  *rand.Rand
	now  time.Time
	days int
}

// NewGenerator creates a generator; events end at now.
func NewGenerator(seed uint64, now time.Time, days int) *Generator {
	if days <= 0 {
		days = DefaultDays
	}
	return &Generator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:  now,
		days: days,
	}
}

// Players returns n players with unique ids and names.
func (g *Generator) Players(n int) []model.Player {
	out := make([]model.Player, n)
	for i := range out {
		var id uuid.UUID
		for j := range id {
			id[j] = byte(g.rng.UintN(256))
		}
		id[6] = (id[6] & 0x0f) | 0x40 // version 4
		id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

		p := model.Player{
			UUID: id,
			Name: fmt.Sprintf("%s%d", nameStems[g.rng.IntN(len(nameStems))], i),
		}
		if g.rng.IntN(4) != 0 {
			p.LastQuit = g.timestamp()
		}
		out[i] = p
	}
	return out
}

// Events returns n attribution events spread over players.
func (g *Generator) Events(players []model.Player, n int) []sqlite.Attribution {
	if len(players) == 0 {
		return nil
	}
	out := make([]sqlite.Attribution, n)
	for i := range out {
		kind := model.Kind(g.rng.IntN(model.KindCount))
		out[i] = sqlite.Attribution{
			PlayerUUID: players[g.rng.IntN(len(players))].UUID,
			Kind:       kind,
			Amount:     g.amount(kind),
			RecordedAt: g.timestamp(),
		}
	}
	return out
}

func (g *Generator) amount(kind model.Kind) uint64 {
	tier := tierCasual
	switch r := g.rng.IntN(20); {
	case r == 0:
		tier = tierHardcore
	case r < 6:
		tier = tierRegular
	}
	a := amounts[kind][tier]
	return a.min + g.rng.Uint64N(a.span)
}

// timestamp is uniform over the window, to the millisecond.
func (g *Generator) timestamp() time.Time {
	window := int64(g.days) * int64(dayLength/time.Millisecond)
	back := time.Duration(g.rng.Int64N(window)) * time.Millisecond
	return g.now.Add(-back).Truncate(time.Millisecond).UTC()
}
