package services

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// RoomRelay handles chat room subscriptions and ephemeral room signals.
type RoomRelay struct {
	emitter Emitter
	logger  zerolog.Logger
}

func NewRoomRelay(emitter Emitter, logger zerolog.Logger) *RoomRelay {
	return &RoomRelay{emitter: emitter, logger: logger.With().Str("component", "rooms").Logger()}
}

// JoinRoom subscribes connID to chatID. There is no leave; membership ends
// with the connection.
func (r *RoomRelay) JoinRoom(connID, chatID string) {
	if chatID == "" {
		return
	}
	r.emitter.Join(connID, chatID)
}

// Typing forwards a typing indicator to the rest of the room.
func (r *RoomRelay) Typing(connID string, payload json.RawMessage) {
	r.relay(connID, EventTyping, payload)
}

// StopTyping forwards the end of a typing indicator to the rest of the room.
func (r *RoomRelay) StopTyping(connID string, payload json.RawMessage) {
	r.relay(connID, EventStopTyping, payload)
}

// relay sends payload unchanged to every other connection in its chatId room.
func (r *RoomRelay) relay(connID, event string, payload json.RawMessage) {
	var target struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(payload, &target); err != nil || target.ChatID == "" {
		r.logger.Debug().Str("conn_id", connID).Str("event", event).Msg("signal without chatId ignored")
		return
	}
	r.emitter.EmitToRoom(target.ChatID, event, payload, connID)
}
