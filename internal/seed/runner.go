package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/ranked/internal/adapters/provider/sqlite"
	"github.com/okian/ranked/pkg/logger"
)

// Run writes a generated data set into the database and, when a server is
// configured, verifies the rankings it serves for that data.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting seed run",
		logger.String("db", cfg.DBPath),
		logger.Int("players", cfg.Players),
		logger.Int("events", cfg.Events),
		logger.Int("days", cfg.Days),
		logger.Uint64("seed", cfg.Seed),
		logger.String("baseURL", cfg.BaseURL))

	store, err := sqlite.Open(ctx, cfg.DBPath, sqlite.WithLogger(log.Named("sqlite")))
	if err != nil {
		return stats, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(context.Background(), "failed to close database", logger.Error(err))
		}
	}()

	gen := NewGenerator(cfg.Seed, time.Now(), cfg.Days)
	players := gen.Players(cfg.Players)
	events := gen.Events(players, cfg.Events)
	if err := Write(ctx, store, players, events, stats); err != nil {
		return stats, err
	}
	written := time.Now()

	if strings.TrimSpace(cfg.BaseURL) != "" {
		client := newHTTPClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout)
		if err := client.getJSON(ctx, "/healthz", nil, nil); err != nil {
			return stats, fmt.Errorf("service health check failed: %w", err)
		}
		log.Info(ctx, "waiting for the server to refresh its rankings", logger.Duration("wait", cfg.Wait))
		if err := waitForRefresh(ctx, client, written, cfg.Wait); err != nil {
			return stats, err
		}
		if err := verifyServer(ctx, cfg, client, store, stats); err != nil {
			return stats, fmt.Errorf("verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersWritten", stats.PlayersWritten),
		logger.Int("eventsWritten", stats.EventsWritten),
		logger.Int("rankingsChecked", stats.RankingsChecked),
		logger.Int("pagesChecked", stats.PagesChecked),
		logger.Int("rowsChecked", stats.RowsChecked),
		logger.Duration("duration", stats.Duration))
}
