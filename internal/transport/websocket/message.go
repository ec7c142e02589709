package websocket

import (
	"encoding/json"

	"github.com/campusware/gameroom-backend/internal/service"
)

// client actions
const (
	ActionFindMatch = "match:find"
	ActionTurn      = "game:turn"
	ActionReady     = "session:ready"
	ActionReconnect = "session:reconnect"
	ActionLeave     = "session:leave"
)

// server pushes
const (
	ActionConnected  = "session:connected"
	ActionState      = "session:state"
	ActionRoomUpdate = "room:update"
	ActionError      = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ConnectedPayload struct {
	PlayerID string `json:"player_id"`
}

type StatePayload struct {
	State service.SessionState `json:"state"`
}

type TurnPayload struct {
	Cell int `json:"cell"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
