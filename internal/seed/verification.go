package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/ranked/internal/adapters/provider/sqlite"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrInvariant is returned when a served ranking is inconsistent.
var ErrInvariant = errors.New("ranking invariant violated")

// CheckRanking verifies a complete ranking: values never increase, equal
// values share a rank and are ordered by uuid, and any other row is ranked
// by its 1-based position.
func CheckRanking(rows []Row) error {
	for i, r := range rows {
		pos := i + 1
		if i == 0 {
			if r.Record.RankPosition != 1 {
				return fmt.Errorf("%w: first row has rank %d", ErrInvariant, r.Record.RankPosition)
			}
			continue
		}
		prev := rows[i-1]
		switch {
		case r.Record.Value > prev.Record.Value:
			return fmt.Errorf("%w: row %d value %d above row %d value %d",
				ErrInvariant, pos, r.Record.Value, pos-1, prev.Record.Value)
		case r.Record.Value == prev.Record.Value:
			if r.Record.RankPosition != prev.Record.RankPosition {
				return fmt.Errorf("%w: tied row %d has rank %d, previous %d",
					ErrInvariant, pos, r.Record.RankPosition, prev.Record.RankPosition)
			}
			if strings.Compare(r.Player.UUID, prev.Player.UUID) <= 0 {
				return fmt.Errorf("%w: tied row %d uuid %s not after %s",
					ErrInvariant, pos, r.Player.UUID, prev.Player.UUID)
			}
		default:
			if r.Record.RankPosition != pos {
				return fmt.Errorf("%w: row %d has rank %d", ErrInvariant, pos, r.Record.RankPosition)
			}
		}
	}
	return nil
}

// waitForRefresh blocks until the server has started a pass after since.
func waitForRefresh(ctx context.Context, client *HTTPClient, since time.Time, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		started, err := client.lastPassStarted(ctx)
		if err == nil && started.After(since) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server did not refresh after %s: %w", since.Format(time.RFC3339), ctx.Err())
		case <-t.C:
		}
	}
}

// verifyServer checks every ranking the server exposes and compares the
// all-time rankings with the totals in store.
func verifyServer(ctx context.Context, cfg *Config, client *HTTPClient, store *sqlite.Store, stats *Stats) error {
	type result struct {
		rows, pages int
	}
	var results [model.KindCount][model.TimeRangeCount]result

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, kind := range model.Kinds() {
		for _, tr := range model.TimeRanges() {
			g.Go(func() error {
				rows, pages, err := client.fetchRanking(gctx, kind, tr, cfg.PageSize)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", kind, tr, err)
				}
				if err := CheckRanking(rows); err != nil {
					return fmt.Errorf("%s/%s: %w", kind, tr, err)
				}
				if tr == model.All {
					if err := compareTotals(gctx, store, kind, rows); err != nil {
						return fmt.Errorf("%s/%s: %w", kind, tr, err)
					}
				}
				results[kind][tr] = result{rows: len(rows), pages: pages}
				logger.Get().Debug(gctx, "ranking verified",
					logger.String("kind", kind.String()),
					logger.String("time_range", tr.String()),
					logger.Int("rows", len(rows)))
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, byRange := range results {
		for _, r := range byRange {
			stats.RankingsChecked++
			stats.RowsChecked += r.rows
			stats.PagesChecked += r.pages
		}
	}
	return nil
}

// compareTotals checks the served all-time ranking against the database.
func compareTotals(ctx context.Context, store *sqlite.Store, kind model.Kind, rows []Row) error {
	totals, err := store.Aggregate(ctx, kind, time.Time{})
	if err != nil {
		return err
	}
	want := make(map[string]uint64, len(totals))
	for _, t := range totals {
		want[t.Player.UUID.String()] = t.Value
	}
	if len(rows) != len(want) {
		return fmt.Errorf("%w: served %d players, database has %d", ErrInvariant, len(rows), len(want))
	}
	for _, r := range rows {
		if v, ok := want[r.Player.UUID]; !ok || v != r.Record.Value {
			return fmt.Errorf("%w: player %s served %d, database has %d", ErrInvariant, r.Player.UUID, r.Record.Value, v)
		}
	}
	return nil
}
