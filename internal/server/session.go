package server

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// writeWait bounds a single frame write. A peer that stops draining its
// socket fails the write instead of parking the sender.
const writeWait = 10 * time.Second

// wsConn is the slice of *websocket.Conn the sessions need; tests swap in
// an in-memory pipe.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// session is one connected client. A session belongs to at most one game
// at a time; playerID is set once the client creates or joins a game over
// this connection.
type session struct {
	id      string
	conn    wsConn
	limiter *rate.Limiter
	logger  *zap.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	gameID   string
	playerID string
}

func newSession(id string, conn wsConn, limit rate.Limit, burst int, logger *zap.Logger) *session {
	return &session{
		id:      id,
		conn:    conn,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// send writes one frame. Writes are serialized per connection; gorilla
// connections do not allow concurrent writers. A failed write is logged
// and otherwise ignored — the read loop notices the dead connection.
func (s *session) send(v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.Debug("session write failed",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
	}
}

func (s *session) setIdentity(gameID, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameID = gameID
	s.playerID = playerID
}

func (s *session) identity() (gameID, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID, s.playerID
}
