// Package sqlite is an attribution provider backed by a SQLite database of
// players and raw attribution events.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/pkg/logger"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// Store persists players and attribution events.
type Store struct {
	sqlDB  *sql.DB
	logger logger.Logger
}

// Attribution is one raw event: amount of kind credited to a player at a time.
type Attribution struct {
	PlayerUUID uuid.UUID
	Kind       model.Kind
	Amount     uint64
	RecordedAt time.Time
}

// Total is the aggregated value of one player.
type Total struct {
	Player model.Player
	Value  uint64
}

// StoreOption configures Open.
type StoreOption func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string, opts ...StoreOption) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	s := &Store{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	cleanPath := filepath.Clean(path)
	s.logger.Info(ctx, "opening sqlite provider database", logger.String("path", cleanPath))

	sqlDB, err := sql.Open("sqlite", cleanPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := s.migrate(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s.sqlDB = sqlDB
	return s, nil
}

func (s *Store) migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	s.logger.Debug(ctx, "migrations applied", logger.Int("count", len(results)))
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertPlayer creates the player or updates its name and last quit time.
func (s *Store) UpsertPlayer(ctx context.Context, p model.Player) error {
	if s == nil || s.sqlDB == nil {
		return ErrClosed
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (uuid, name, last_quit_ms) VALUES (?, ?, ?)
		 ON CONFLICT (uuid) DO UPDATE SET name = excluded.name, last_quit_ms = excluded.last_quit_ms`,
		p.UUID.String(), p.Name, toMillis(p.LastQuit),
	)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", p.UUID, err)
	}
	return nil
}

// RecordAttributions inserts events in a single transaction.
func (s *Store) RecordAttributions(ctx context.Context, events ...Attribution) error {
	if s == nil || s.sqlDB == nil {
		return ErrClosed
	}
	for _, e := range events {
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidKind, e.Kind)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attributions (player_uuid, kind, amount, recorded_at_ms) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		if e.Amount > math.MaxInt64 {
			return fmt.Errorf("attribution amount %d overflows storage", e.Amount)
		}
		if _, err := stmt.ExecContext(ctx, e.PlayerUUID.String(), e.Kind.String(), int64(e.Amount), toMillis(e.RecordedAt)); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", ErrUnknownPlayer, e.PlayerUUID)
			}
			return fmt.Errorf("insert attribution: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Aggregate sums the events of kind recorded at or after since, per player.
// A zero since aggregates everything.
func (s *Store) Aggregate(ctx context.Context, kind model.Kind, since time.Time) ([]Total, error) {
	if s == nil || s.sqlDB == nil {
		return nil, ErrClosed
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
	lower := int64(math.MinInt64)
	if !since.IsZero() {
		lower = since.UTC().UnixMilli()
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT p.uuid, p.name, p.last_quit_ms, SUM(a.amount)
		   FROM attributions a
		   JOIN players p ON p.uuid = a.player_uuid
		  WHERE a.kind = ? AND a.recorded_at_ms >= ?
		  GROUP BY p.uuid, p.name, p.last_quit_ms`,
		kind.String(), lower,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Total
	for rows.Next() {
		var (
			rawID    string
			name     string
			lastQuit int64
			sum      int64
		)
		if err := rows.Scan(&rawID, &name, &lastQuit, &sum); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("player uuid %q: %w", rawID, err)
		}
		out = append(out, Total{
			Player: model.Player{UUID: id, Name: name, LastQuit: fromMillis(lastQuit)},
			Value:  uint64(sum),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return out, nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
