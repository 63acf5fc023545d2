package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tripptrapp/internal/entity"
)

const (
	actionConnect   = "connect"
	actionGameTurn  = "game:turn"
	actionGameReset = "game:reset"
	actionGameMode  = "game:mode"
	actionGameState = "game:state"
	actionError     = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	SessionID string     `json:"session_id,omitempty"`
	Cell      *int       `json:"cell,omitempty"`
	Mode      string     `json:"mode,omitempty"`
	Game      *GameState `json:"game,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// GameState is a snapshot plus the localized status line.
type GameState struct {
	entity.Snapshot
	StatusText string `json:"status_text"`
}
