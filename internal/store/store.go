// Package store persists full game snapshots keyed by game id. Snapshots
// are whole-state writes with upsert semantics; there are no partial
// updates. The in-memory registry remains the source of truth, so every
// implementation treats writes as best-effort from the caller's view.
package store

import (
	"context"
	"errors"

	"github.com/stratcomm/stratcomm-server-go/internal/game"
)

// ErrNotFound is returned by Load for an unknown game id.
var ErrNotFound = errors.New("game not found")

// Store is the snapshot persistence contract.
type Store interface {
	// Save writes the full snapshot for the game, replacing any
	// previous one.
	Save(ctx context.Context, g *game.GameState) error
	// Load returns the stored snapshot, or ErrNotFound.
	Load(ctx context.Context, id string) (*game.GameState, error)
	Close()
}
