package server

import "github.com/stratcomm/stratcomm-server-go/internal/game"

// Inbound message types.
const (
	msgCreateGame   = "createGame"
	msgJoinGame     = "joinGame"
	msgStartGame    = "startGame"
	msgSubmitOrders = "submitOrders"
)

// inboundMessage is the flat client envelope; which fields matter depends
// on Type.
type inboundMessage struct {
	Type       string            `json:"type"`
	PlayerName string            `json:"playerName,omitempty"`
	MaxPlayers int               `json:"maxPlayers,omitempty"`
	GameID     string            `json:"gameId,omitempty"`
	PlayerID   string            `json:"playerId,omitempty"`
	Order      *game.PlayerOrder `json:"order,omitempty"`
}

// gameStateMessage pushes a full snapshot. PlayerID is set only on the
// frame answering the session's own create or join.
type gameStateMessage struct {
	Type     string          `json:"type"`
	Game     *game.GameState `json:"game"`
	PlayerID string          `json:"playerId,omitempty"`
}

// ordersUpdateMessage reports turn progress while orders are still
// outstanding.
type ordersUpdateMessage struct {
	Type     string `json:"type"`
	Received int    `json:"received"`
	Total    int    `json:"total"`
}

// errorMessage reports a sender-local failure.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func stateFrame(g *game.GameState, playerID string) gameStateMessage {
	return gameStateMessage{Type: "gameState", Game: g, PlayerID: playerID}
}

func progressFrame(received, total int) ordersUpdateMessage {
	return ordersUpdateMessage{Type: "ordersUpdate", Received: received, Total: total}
}

func errorFrame(message string) errorMessage {
	return errorMessage{Type: "error", Message: message}
}
