package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/stratcomm/stratcomm-server-go/internal/game"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	state      BLOB NOT NULL,
	checksum   TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// SQLite stores snapshots in a local database file. The driver is pure
// Go, so the binary stays CGO-free.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens (or creates) the database file and ensures the schema.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure games table: %w", err)
	}

	logger.Info("sqlite store initialized", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Save(ctx context.Context, g *game.GameState) error {
	blob, checksum, err := encodeState(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, state, checksum, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT (id) DO UPDATE
		 SET state = excluded.state, checksum = excluded.checksum, updated_at = datetime('now')`,
		g.ID, blob, checksum)
	if err != nil {
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*game.GameState, error) {
	var (
		blob     []byte
		checksum string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT state, checksum FROM games WHERE id = ?`, id,
	).Scan(&blob, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return decodeState(id, blob, checksum)
}

func (s *SQLite) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing sqlite store", zap.Error(err))
	}
}
