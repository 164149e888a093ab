package seed

import (
	"context"
	"fmt"

	"github.com/okian/ranked/internal/adapters/provider/sqlite"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/pkg/logger"
)

// Write stores players and events, committing events in batches.
func Write(ctx context.Context, store *sqlite.Store, players []model.Player, events []sqlite.Attribution, stats *Stats) error {
	for _, p := range players {
		if err := store.UpsertPlayer(ctx, p); err != nil {
			return fmt.Errorf("write player: %w", err)
		}
		stats.PlayersWritten++
	}
	logger.Get().Info(ctx, "players written", logger.Int("count", stats.PlayersWritten))

	for start := 0; start < len(events); start += insertBatchSize {
		end := min(start+insertBatchSize, len(events))
		if err := store.RecordAttributions(ctx, events[start:end]...); err != nil {
			return fmt.Errorf("write events %d-%d: %w", start, end, err)
		}
		stats.EventsWritten = end
		logger.Get().Debug(ctx, "event batch written", logger.Int("written", end), logger.Int("total", len(events)))
	}
	logger.Get().Info(ctx, "events written", logger.Int("count", stats.EventsWritten))
	return nil
}
