// Package registry owns the live games and is the single writer for any
// one of them. Every game gets its own serialization point, so order
// submission and turn resolution for one match never block another.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stratcomm/stratcomm-server-go/internal/game"
	"github.com/stratcomm/stratcomm-server-go/internal/store"
)

// Sender-visible failures. None of them are fatal and none can corrupt
// another game's state.
var (
	ErrGameNotFound  = errors.New("game not found")
	ErrLobbyFull     = errors.New("lobby full")
	ErrGameNotActive = errors.New("game not active")
	ErrUnauthorized  = errors.New("not a member of this game")
)

const storeTimeout = 5 * time.Second

// handle carries one live game and its lock. All reads and writes of the
// state go through the lock; snapshots handed out are deep copies.
type handle struct {
	mu    sync.Mutex
	state *game.GameState
	rev   uint64
}

// Registry maps game ids to live games backed by a snapshot store.
type Registry struct {
	mu     sync.RWMutex
	games  map[string]*handle
	store  store.Store
	logger *zap.Logger
}

// New creates an empty registry.
func New(st store.Store, logger *zap.Logger) *Registry {
	return &Registry{
		games:  make(map[string]*handle),
		store:  st,
		logger: logger,
	}
}

// Snapshot is the result of a registry mutation: a deep copy of the
// committed state plus the commit revision used to order broadcasts.
type Snapshot struct {
	Game *game.GameState
	Rev  uint64
}

// SubmitResult reports what an order submission did to the game.
type SubmitResult struct {
	Snapshot
	Received int
	Total    int
	Resolved bool
}

// Create makes a new game with the creator as its first player. Returns
// the committed snapshot and the creator's player id.
func (r *Registry) Create(maxPlayers int, playerName string) (Snapshot, string) {
	g := game.NewGame(maxPlayers)
	player := game.NewPlayer(playerName)
	g.Players = append(g.Players, player)

	// Clone before the handle is published: once another connection can
	// find the id, only h.mu guards the state.
	h := &handle{state: g, rev: 1}
	snap := Snapshot{Game: g.Clone(), Rev: 1}

	r.mu.Lock()
	r.games[g.ID] = h
	r.mu.Unlock()

	r.persist(snap.Game)
	r.logger.Info("game created",
		zap.String("game_id", snap.Game.ID),
		zap.Int("max_players", snap.Game.MaxPlayers),
		zap.String("player_id", player.ID),
	)
	return snap, player.ID
}

// Get returns a copy of the current state, falling back to the store for
// ids this process has not seen.
func (r *Registry) Get(id string) (Snapshot, error) {
	h, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{Game: h.state.Clone(), Rev: h.rev}, nil
}

// Join appends a player to the game's lobby. Returns the committed
// snapshot and the new player's id.
func (r *Registry) Join(id, playerName string) (Snapshot, string, error) {
	h, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, "", err
	}

	h.mu.Lock()
	if len(h.state.Players) >= h.state.MaxPlayers {
		h.mu.Unlock()
		return Snapshot{}, "", ErrLobbyFull
	}

	player := game.NewPlayer(playerName)
	h.state.Players = append(h.state.Players, player)
	h.rev++
	snap := Snapshot{Game: h.state.Clone(), Rev: h.rev}
	h.mu.Unlock()

	// The store write happens off the game lock; a slow store must not
	// hold up readers of already-committed state.
	r.persist(snap.Game)
	r.logger.Info("player joined",
		zap.String("game_id", id),
		zap.String("player_id", player.ID),
		zap.Int("players", len(snap.Game.Players)),
	)
	return snap, player.ID, nil
}

// Start activates the game and assigns starting planets. Only members may
// start a game; a duplicate start is a no-op returning the current state.
func (r *Registry) Start(id, playerID string) (Snapshot, error) {
	h, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	h.mu.Lock()
	if !h.state.IsMember(playerID) {
		h.mu.Unlock()
		return Snapshot{}, ErrUnauthorized
	}
	if h.state.Status == game.StatusActive {
		snap := Snapshot{Game: h.state.Clone(), Rev: h.rev}
		h.mu.Unlock()
		return snap, nil
	}

	h.state.Status = game.StatusActive
	game.AssignStartingPlanets(h.state)
	h.rev++
	snap := Snapshot{Game: h.state.Clone(), Rev: h.rev}
	h.mu.Unlock()

	r.persist(snap.Game)
	r.logger.Info("game started",
		zap.String("game_id", id),
		zap.Int("players", len(snap.Game.Players)),
		zap.Int("planets", len(snap.Game.Planets)),
	)
	return snap, nil
}

// SubmitOrder normalizes and records one player's order. When that order
// completes the set, the turn resolves exactly once and the result
// replaces the stored state.
func (r *Registry) SubmitOrder(id string, order *game.PlayerOrder) (SubmitResult, error) {
	h, err := r.lookup(id)
	if err != nil {
		return SubmitResult{}, err
	}

	h.mu.Lock()
	if h.state.Status != game.StatusActive {
		h.mu.Unlock()
		return SubmitResult{}, ErrGameNotActive
	}
	if !h.state.IsMember(order.PlayerID) {
		h.mu.Unlock()
		return SubmitResult{}, ErrUnauthorized
	}

	order.Normalize()
	h.state.Orders.Put(order)

	resolved := false
	turn := h.state.Turn
	if h.state.OrdersComplete() {
		h.state = game.ResolveTurn(h.state)
		resolved = true
	}
	h.rev++
	snap := Snapshot{Game: h.state.Clone(), Rev: h.rev}
	h.mu.Unlock()

	if resolved {
		r.logger.Info("turn resolved",
			zap.String("game_id", id),
			zap.Int("turn", turn),
		)
	}
	r.persist(snap.Game)
	return SubmitResult{
		Snapshot: snap,
		Received: snap.Game.Orders.Len(),
		Total:    len(snap.Game.Players),
		Resolved: resolved,
	}, nil
}

// lookup finds the live handle for a game, loading it through from the
// store on first sight of the id.
func (r *Registry) lookup(id string) (*handle, error) {
	r.mu.RLock()
	h, ok := r.games[id]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	g, err := r.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("snapshot load failed", zap.String("game_id", id), zap.Error(err))
		}
		return nil, ErrGameNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another connection may have loaded it while we read the store.
	if h, ok := r.games[id]; ok {
		return h, nil
	}
	h = &handle{state: g, rev: 1}
	r.games[id] = h
	r.logger.Info("game restored from store", zap.String("game_id", id))
	return h, nil
}

// persist writes a snapshot best-effort. A store failure is logged and
// the in-memory state stays authoritative; the turn is never failed for
// the player because a disk or network write did not land.
func (r *Registry) persist(g *game.GameState) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.Save(ctx, g); err != nil {
		r.logger.Warn("snapshot save failed",
			zap.String("game_id", g.ID),
			zap.Error(err),
		)
	}
}
