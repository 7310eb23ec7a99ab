package handlers

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"livechat/internal/models"
	"livechat/internal/services"
	"livechat/internal/utils"
)

// Inbound socket events.
const (
	eventUserOnline         = "userOnline"
	eventReconnect          = "reconnect"
	eventJoinRoom           = "joinRoom"
	eventTyping             = "typing"
	eventStopTyping         = "stopTyping"
	eventSendMessage        = "sendMessage"
	eventMessageDelivered   = "messageDelivered"
	eventMessageRead        = "messageRead"
	eventEditMessage        = "editMessage"
	eventDeleteMessage      = "deleteMessage"
	eventVoiceCallOffer     = "voiceCallOffer"
	eventVoiceCallAnswer    = "voiceCallAnswer"
	eventVoiceCallCandidate = "voiceCallCandidate"
	eventHangUpVoiceCall    = "hangUpVoiceCall"
)

// Acker replies to frames that asked for an acknowledgement.
type Acker interface {
	Ack(connID string, ack int64, result models.AckResult)
}

// Socket dispatches inbound frames of one connection to the services.
// Frames of a connection are handled in order by its read loop.
type Socket struct {
	acks     Acker
	presence *services.PresenceService
	rooms    *services.RoomRelay
	messages *services.MessageService
	calls    *services.CallService
	logger   zerolog.Logger
}

func NewSocket(
	acks Acker,
	presence *services.PresenceService,
	rooms *services.RoomRelay,
	messages *services.MessageService,
	calls *services.CallService,
	logger zerolog.Logger,
) *Socket {
	return &Socket{
		acks:     acks,
		presence: presence,
		rooms:    rooms,
		messages: messages,
		calls:    calls,
		logger:   logger.With().Str("component", "socket").Logger(),
	}
}

// HandleMessage decodes one text frame and runs its handler.
func (s *Socket) HandleMessage(connID string, raw []byte) {
	var frame models.Frame
	if err := utils.SafeJSONParse(raw, &frame); err != nil {
		s.logger.Debug().Err(err).Str("conn_id", connID).Msg("malformed frame")
		return
	}

	ctx := context.Background()
	switch frame.Event {
	case eventUserOnline, eventReconnect:
		s.presence.Connect(ctx, connID, utils.StringOrField(frame.Data, "userId"))
	case eventJoinRoom:
		s.rooms.JoinRoom(connID, utils.StringOrField(frame.Data, "chatId"))
	case eventTyping:
		s.rooms.Typing(connID, frame.Data)
	case eventStopTyping:
		s.rooms.StopTyping(connID, frame.Data)
	case eventSendMessage:
		s.handleSendMessage(ctx, connID, frame)
	case eventMessageDelivered:
		s.handleMessageDelivered(ctx, connID, frame)
	case eventMessageRead:
		s.handleMessageRead(ctx, connID, frame)
	case eventEditMessage:
		s.handleEditMessage(ctx, connID, frame)
	case eventDeleteMessage:
		s.handleDeleteMessage(ctx, connID, frame)
	case eventVoiceCallOffer:
		s.handleVoiceCallOffer(ctx, connID, frame)
	case eventVoiceCallAnswer:
		s.handleVoiceCallAnswer(ctx, connID, frame)
	case eventVoiceCallCandidate:
		s.handleVoiceCallCandidate(ctx, connID, frame)
	case eventHangUpVoiceCall:
		s.handleHangUpVoiceCall(ctx, connID, frame)
	default:
		s.logger.Debug().Str("conn_id", connID).Str("event", frame.Event).Msg("unknown event")
	}
}

// Disconnect runs when the connection's read loop ends.
func (s *Socket) Disconnect(connID string) {
	s.presence.Disconnect(context.Background(), connID)
}

// reply acknowledges frame with data on success or with the public message
// of err. Internal errors are logged here.
func (s *Socket) reply(connID string, frame models.Frame, data interface{}, err error) {
	if err != nil {
		var svcErr *services.Error
		if !errors.As(err, &svcErr) {
			s.logger.Error().Err(err).Str("conn_id", connID).Str("event", frame.Event).Msg("handler failed")
		}
		s.acks.Ack(connID, frame.Ack, models.AckResult{Message: services.PublicMessage(err)})
		return
	}
	s.acks.Ack(connID, frame.Ack, models.AckResult{Success: true, Data: data})
}

func invalidPayload(msg string) error {
	return &services.Error{Kind: services.ErrValidation, Message: msg}
}
