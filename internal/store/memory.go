package store

import (
	"context"
	"sync"

	"github.com/stratcomm/stratcomm-server-go/internal/game"
)

// Memory is an in-process Store for tests and single-node development.
type Memory struct {
	mu    sync.RWMutex
	games map[string]*game.GameState
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{games: make(map[string]*game.GameState)}
}

func (m *Memory) Save(_ context.Context, g *game.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*game.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (m *Memory) Close() {}
