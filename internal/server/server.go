// Package server exposes the game over a websocket message channel: JSON
// envelopes in, gameState/ordersUpdate/error frames out.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stratcomm/stratcomm-server-go/internal/config"
	"github.com/stratcomm/stratcomm-server-go/internal/registry"
)

// GameServer routes client messages to the registry and fans results out
// to every session of the affected game.
type GameServer struct {
	registry    *registry.Registry
	broadcaster *broadcaster
	upgrader    websocket.Upgrader
	rateLimit   config.RateLimitConfig
	logger      *zap.Logger
}

// New creates a GameServer on top of a registry.
func New(cfg config.ServerConfig, reg *registry.Registry, logger *zap.Logger) *GameServer {
	return &GameServer{
		registry:    reg,
		broadcaster: newBroadcaster(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rateLimit: cfg.RateLimit,
		logger:    logger,
	}
}

// Routes returns the HTTP router: the websocket endpoint plus a health
// check.
func (gs *GameServer) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", gs.handleWS)
	return r
}

func (gs *GameServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gs.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s := newSession(uuid.New().String(), conn,
		rate.Limit(gs.rateLimit.MessagesPerSecond), gs.rateLimit.Burst, gs.logger)
	gs.logger.Debug("session connected",
		zap.String("session_id", s.id),
		zap.String("remote", r.RemoteAddr),
	)
	go gs.readLoop(s)
}

// readLoop drives one session. It exits when the connection drops, at
// which point the session leaves its game's broadcast set; the game
// itself is untouched.
func (gs *GameServer) readLoop(s *session) {
	defer func() {
		gs.broadcaster.remove(s)
		s.conn.Close()
		gs.logger.Debug("session closed", zap.String("session_id", s.id))
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if !s.limiter.Allow() {
			s.send(errorFrame("Rate limit exceeded"))
			continue
		}
		gs.dispatch(s, raw)
	}
}

// dispatch parses one inbound envelope and runs the matching transition.
// A payload that fails to parse produces an error frame to the sender
// only and never touches game state.
func (gs *GameServer) dispatch(s *session, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.send(errorFrame("Invalid message"))
		return
	}

	switch msg.Type {
	case msgCreateGame:
		gs.handleCreateGame(s, msg)
	case msgJoinGame:
		gs.handleJoinGame(s, msg)
	case msgStartGame:
		gs.handleStartGame(s, msg)
	case msgSubmitOrders:
		gs.handleSubmitOrders(s, msg)
	default:
		s.send(errorFrame("Invalid message"))
	}
}

func (gs *GameServer) handleCreateGame(s *session, msg inboundMessage) {
	snap, playerID := gs.registry.Create(msg.MaxPlayers, msg.PlayerName)

	gs.broadcaster.register(s, snap.Game.ID)
	s.setIdentity(snap.Game.ID, playerID)

	// Only the creator learns the new game's state (and their id) here;
	// everyone else hears about it when they join.
	s.send(stateFrame(snap.Game, playerID))
}

func (gs *GameServer) handleJoinGame(s *session, msg inboundMessage) {
	snap, playerID, err := gs.registry.Join(msg.GameID, msg.PlayerName)
	if err != nil {
		s.send(errorFrame(errText(err)))
		return
	}

	gs.broadcaster.register(s, snap.Game.ID)
	s.setIdentity(snap.Game.ID, playerID)

	// The joiner's id-bearing frame is a direct reply, like createGame;
	// racing commits for the same game must not be able to suppress it.
	s.send(stateFrame(snap.Game, playerID))
	gs.broadcaster.broadcast(snap.Game.ID, snap.Rev, func(target *session) interface{} {
		if target == s {
			return nil
		}
		return stateFrame(snap.Game, "")
	})
}

func (gs *GameServer) handleStartGame(s *session, msg inboundMessage) {
	snap, err := gs.registry.Start(msg.GameID, msg.PlayerID)
	if err != nil {
		s.send(errorFrame(errText(err)))
		return
	}
	gs.broadcaster.broadcast(msg.GameID, snap.Rev, func(*session) interface{} {
		return stateFrame(snap.Game, "")
	})
}

func (gs *GameServer) handleSubmitOrders(s *session, msg inboundMessage) {
	if msg.Order == nil {
		s.send(errorFrame("Invalid message"))
		return
	}
	res, err := gs.registry.SubmitOrder(msg.GameID, msg.Order)
	if err != nil {
		s.send(errorFrame(errText(err)))
		return
	}

	if res.Resolved {
		gs.broadcaster.broadcast(msg.GameID, res.Rev, func(*session) interface{} {
			return stateFrame(res.Game, "")
		})
		return
	}
	gs.broadcaster.broadcast(msg.GameID, res.Rev, func(*session) interface{} {
		return progressFrame(res.Received, res.Total)
	})
}

// errText maps registry failures onto the client-facing strings.
func errText(err error) string {
	switch {
	case errors.Is(err, registry.ErrGameNotFound):
		return "Game not found"
	case errors.Is(err, registry.ErrLobbyFull):
		return "Lobby full"
	case errors.Is(err, registry.ErrGameNotActive):
		return "Game not active"
	case errors.Is(err, registry.ErrUnauthorized):
		return "Not a member of this game"
	default:
		return "Internal error"
	}
}
