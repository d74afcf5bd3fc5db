package server

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stratcomm/stratcomm-server-go/internal/config"
	"github.com/stratcomm/stratcomm-server-go/internal/game"
	"github.com/stratcomm/stratcomm-server-go/internal/registry"
	"github.com/stratcomm/stratcomm-server-go/internal/store"
)

// fakeConn is an in-memory wsConn: scripted reads, captured writes. A
// non-nil writeGate stalls WriteJSON until the gate is closed,
// simulating a peer that stops draining its socket.
type fakeConn struct {
	writeGate chan struct{}

	mu        sync.Mutex
	reads     [][]byte
	frames    []interface{}
	deadlines []time.Time
	closed    bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		return 0, nil, io.EOF
	}
	raw := f.reads[0]
	f.reads = f.reads[1:]
	return 1, raw, nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.writeGate != nil {
		<-f.writeGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines = append(f.deadlines, t)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) sent() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.frames...)
}

func (f *fakeConn) lastFrame(t *testing.T) interface{} {
	t.Helper()
	frames := f.sent()
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	reg := registry.New(store.NewMemory(), zap.NewNop())
	return New(cfg.Server, reg, zap.NewNop())
}

func connect() (*session, *fakeConn) {
	conn := &fakeConn{}
	s := newSession("test-session", conn, rate.Limit(100), 100, zap.NewNop())
	return s, conn
}

func envelope(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestCreateGameRepliesToCreatorOnly(t *testing.T) {
	gs := newTestServer(t)
	s, conn := connect()

	gs.dispatch(s, envelope(t, map[string]interface{}{
		"type": "createGame", "playerName": "Ada", "maxPlayers": 3,
	}))

	frame, ok := conn.lastFrame(t).(gameStateMessage)
	require.True(t, ok, "expected a gameState frame")
	assert.NotEmpty(t, frame.PlayerID)
	assert.Equal(t, game.StatusLobby, frame.Game.Status)
	assert.Equal(t, 3, frame.Game.MaxPlayers)
	assert.Len(t, frame.Game.Players, 1)
	assert.Equal(t, 1, gs.broadcaster.count(frame.Game.ID))
}

func TestJoinGameBroadcastsRoster(t *testing.T) {
	gs := newTestServer(t)
	creator, creatorConn := connect()
	joiner, joinerConn := connect()

	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "createGame", "playerName": "Ada", "maxPlayers": 2,
	}))
	created := creatorConn.lastFrame(t).(gameStateMessage)

	gs.dispatch(joiner, envelope(t, map[string]interface{}{
		"type": "joinGame", "playerName": "Bea", "gameId": created.Game.ID,
	}))

	// The joiner's frame carries their id, the creator's copy does not.
	joinerFrame := joinerConn.lastFrame(t).(gameStateMessage)
	assert.NotEmpty(t, joinerFrame.PlayerID)
	assert.Len(t, joinerFrame.Game.Players, 2)

	creatorFrame := creatorConn.lastFrame(t).(gameStateMessage)
	assert.Empty(t, creatorFrame.PlayerID)
	assert.Len(t, creatorFrame.Game.Players, 2)
}

func TestJoinGameErrors(t *testing.T) {
	gs := newTestServer(t)
	s, conn := connect()

	gs.dispatch(s, envelope(t, map[string]interface{}{
		"type": "joinGame", "playerName": "Bea", "gameId": "NOPE42",
	}))
	assert.Equal(t, errorFrame("Game not found"), conn.lastFrame(t))

	creator, creatorConn := connect()
	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "createGame", "playerName": "Ada", "maxPlayers": 2,
	}))
	created := creatorConn.lastFrame(t).(gameStateMessage)

	other, _ := connect()
	gs.dispatch(other, envelope(t, map[string]interface{}{
		"type": "joinGame", "playerName": "Bea", "gameId": created.Game.ID,
	}))
	gs.dispatch(s, envelope(t, map[string]interface{}{
		"type": "joinGame", "playerName": "Cyr", "gameId": created.Game.ID,
	}))
	assert.Equal(t, errorFrame("Lobby full"), conn.lastFrame(t))
}

func TestStartGameBroadcastsActiveState(t *testing.T) {
	gs := newTestServer(t)
	creator, creatorConn := connect()
	joiner, joinerConn := connect()

	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "createGame", "playerName": "Ada", "maxPlayers": 2,
	}))
	created := creatorConn.lastFrame(t).(gameStateMessage)
	gs.dispatch(joiner, envelope(t, map[string]interface{}{
		"type": "joinGame", "playerName": "Bea", "gameId": created.Game.ID,
	}))

	// A stranger cannot start it.
	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "startGame", "gameId": created.Game.ID, "playerId": "stranger",
	}))
	assert.Equal(t, errorFrame("Not a member of this game"), creatorConn.lastFrame(t))

	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "startGame", "gameId": created.Game.ID, "playerId": created.PlayerID,
	}))

	for _, conn := range []*fakeConn{creatorConn, joinerConn} {
		frame := conn.lastFrame(t).(gameStateMessage)
		assert.Equal(t, game.StatusActive, frame.Game.Status)
		assert.Equal(t, created.PlayerID, frame.Game.Planets[0].OwnerID)
	}
}

func TestSubmitOrdersProgressAndResolution(t *testing.T) {
	gs := newTestServer(t)
	creator, creatorConn := connect()
	joiner, joinerConn := connect()

	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "createGame", "playerName": "Ada", "maxPlayers": 2,
	}))
	created := creatorConn.lastFrame(t).(gameStateMessage)
	gs.dispatch(joiner, envelope(t, map[string]interface{}{
		"type": "joinGame", "playerName": "Bea", "gameId": created.Game.ID,
	}))
	joined := joinerConn.lastFrame(t).(gameStateMessage)
	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "startGame", "gameId": created.Game.ID, "playerId": created.PlayerID,
	}))

	// First order in: progress notice to everyone.
	gs.dispatch(creator, envelope(t, map[string]interface{}{
		"type": "submitOrders", "gameId": created.Game.ID,
		"order": map[string]interface{}{"playerId": created.PlayerID, "researchSpend": 50},
	}))
	assert.Equal(t, progressFrame(1, 2), creatorConn.lastFrame(t))
	assert.Equal(t, progressFrame(1, 2), joinerConn.lastFrame(t))

	// Second order completes the set: everyone gets the resolved state.
	gs.dispatch(joiner, envelope(t, map[string]interface{}{
		"type": "submitOrders", "gameId": created.Game.ID,
		"order": map[string]interface{}{"playerId": joined.PlayerID},
	}))
	for _, conn := range []*fakeConn{creatorConn, joinerConn} {
		frame := conn.lastFrame(t).(gameStateMessage)
		assert.Equal(t, 2, frame.Game.Turn)
		assert.Equal(t, 50, frame.Game.PlayerByID(created.PlayerID).ResearchPoints)
		assert.Equal(t, 0, frame.Game.Orders.Len())
	}
}

func TestSubmitOrdersWithoutOrderPayload(t *testing.T) {
	gs := newTestServer(t)
	s, conn := connect()
	gs.dispatch(s, envelope(t, map[string]interface{}{
		"type": "submitOrders", "gameId": "GAME01",
	}))
	assert.Equal(t, errorFrame("Invalid message"), conn.lastFrame(t))
}

func TestMalformedAndUnknownMessages(t *testing.T) {
	gs := newTestServer(t)
	s, conn := connect()

	gs.dispatch(s, []byte("{this is not json"))
	assert.Equal(t, errorFrame("Invalid message"), conn.lastFrame(t))

	gs.dispatch(s, envelope(t, map[string]interface{}{"type": "teleport"}))
	assert.Equal(t, errorFrame("Invalid message"), conn.lastFrame(t))
}

func TestReadLoopRateLimitsAndCleansUp(t *testing.T) {
	gs := newTestServer(t)
	conn := &fakeConn{}
	for i := 0; i < 3; i++ {
		conn.reads = append(conn.reads, envelope(t, map[string]interface{}{
			"type": "createGame", "playerName": fmt.Sprintf("Ada%d", i), "maxPlayers": 2,
		}))
	}
	// A zero refill rate with burst 1 admits exactly one message.
	s := newSession("limited", conn, rate.Limit(0), 1, zap.NewNop())

	gs.readLoop(s)

	frames := conn.sent()
	require.Len(t, frames, 3)
	_, ok := frames[0].(gameStateMessage)
	assert.True(t, ok, "first message should be processed")
	assert.Equal(t, errorFrame("Rate limit exceeded"), frames[1])
	assert.Equal(t, errorFrame("Rate limit exceeded"), frames[2])
	assert.True(t, conn.closed)

	gameID, _ := s.identity()
	assert.Equal(t, 0, gs.broadcaster.count(gameID), "disconnect leaves the broadcast set")
}
