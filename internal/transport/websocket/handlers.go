package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/campusware/gameroom-backend/internal/entity"
	"github.com/campusware/gameroom-backend/internal/service"
)

// client couples one websocket connection with one session and acts as the
// session's events sink.
type client struct {
	logger  *slog.Logger
	conn    *websocket.Conn
	session *service.Session
	writeMu sync.Mutex
}

func (that *client) readLoop(ctx context.Context) {
	for {
		_, raw, err := that.conn.ReadMessage()
		if err != nil {
			that.logger.Debug("read loop ended", "error", err)
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			that.logger.Debug("failed to unmarshal message", "error", err)
			continue
		}

		that.handleMessage(ctx, &message)
	}
}

func (that *client) handleMessage(ctx context.Context, message *Message) {
	switch message.Action {
	case ActionFindMatch:
		if err := that.session.FindMatch(ctx); err != nil {
			that.logger.Debug("find match failed", "error", err)
		}
	case ActionTurn:
		var payload TurnPayload
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			that.logger.Debug("failed to unmarshal turn payload", "error", err)
			return
		}

		if err := that.session.SubmitMove(ctx, payload.Cell); err != nil {
			that.logger.Debug("submit move failed", "error", err)
		}
	case ActionReady:
		that.session.Ready()
	case ActionReconnect:
		if err := that.session.Reconnect(ctx); err != nil {
			that.logger.Debug("reconnect failed", "error", err)
		}
	case ActionLeave:
		that.session.Leave()
	default:
		that.logger.Debug("unknown action", "action", message.Action)
	}
}

func (that *client) StateChanged(state service.SessionState) {
	that.send(ActionState, StatePayload{State: state})
}

func (that *client) RoomUpdated(room *entity.Room) {
	that.send(ActionRoomUpdate, room)
}

func (that *client) Failed(err error) {
	that.send(ActionError, ErrorPayload{Message: err.Error()})
}

func (that *client) send(action string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		that.logger.Error("failed to marshal payload", "action", action, "error", err)
		return
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		that.logger.Debug("failed to write message", "action", action, "error", err)
	}
}
