package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"livechat/internal/cache"
	"livechat/internal/events"
	"livechat/internal/metrics"
	"livechat/internal/models"
	"livechat/internal/presence"
	"livechat/internal/store"
)

const (
	// FilePlaceholder is the content of a file message sent without a caption.
	FilePlaceholder = "Media file"
	// UnencryptedIV marks a file message whose content is not encrypted.
	UnencryptedIV = "dummy"
)

// Send origins, used as metric labels.
const (
	OriginSocket = "socket"
	OriginREST   = "rest"
)

// MessageDeps are the collaborators of a MessageService.
type MessageDeps struct {
	Users        store.UserStore
	Chats        store.ChatStore
	Messages     store.MessageStore
	Presence     presence.Store
	Emitter      Emitter
	History      *cache.History
	Events       events.Publisher
	Logger       zerolog.Logger
	HistoryLimit int
}

// MessageService persists messages and fans them out to live connections.
// The socket and REST adapters share it.
type MessageService struct {
	users    store.UserStore
	chats    store.ChatStore
	messages store.MessageStore
	presence presence.Store
	emitter  Emitter
	history  *cache.History
	events   events.Publisher
	logger   zerolog.Logger
	limit    int
	now      func() time.Time
}

func NewMessageService(d MessageDeps) *MessageService {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = cache.DefaultHistoryLimit
	}
	return &MessageService{
		users:    d.Users,
		chats:    d.Chats,
		messages: d.Messages,
		presence: d.Presence,
		emitter:  d.Emitter,
		history:  d.History,
		events:   d.Events,
		logger:   d.Logger.With().Str("component", "messages").Logger(),
		limit:    d.HistoryLimit,
		now:      time.Now,
	}
}

// SendInput describes a new message.
type SendInput struct {
	ChatID  string
	Sender  string
	Content string
	IV      string
	FileURL string
	// OriginConn receives messageSentConfirmation when set.
	OriginConn string
	Origin     string
	// RequireMembership rejects senders that are not chat participants.
	RequireMembership bool
}

// Send persists a message, then pushes it to every other online participant.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	if in.ChatID == "" || in.Sender == "" {
		return nil, validationError("Invalid message data")
	}

	content := strings.TrimSpace(in.Content)
	iv := in.IV
	if in.FileURL != "" {
		if content == "" {
			content = FilePlaceholder
		}
		if iv == "" {
			iv = UnencryptedIV
		}
	} else {
		if in.Content == "" || in.IV == "" {
			return nil, validationError("Invalid message data")
		}
		if content == "" {
			return nil, validationError("Message content cannot be empty")
		}
	}

	sender, err := s.resolveSender(ctx, in.Sender)
	if err != nil {
		return nil, err
	}

	chat, err := s.chats.GetChat(ctx, in.ChatID)
	if errors.Is(err, store.ErrNotFound) {
		if in.RequireMembership {
			return nil, notFoundError("Chat not found or not authorized")
		}
		return nil, notFoundError("Chat not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if in.RequireMembership && !chat.HasParticipant(sender.ID) {
		return nil, notFoundError("Chat not found or not authorized")
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Sender:    sender,
		Content:   content,
		IV:        iv,
		FileURL:   in.FileURL,
		Delivered: true,
		IsAI:      sender.ID == models.AISenderID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.chats.SetLastMessage(ctx, chat.ID, msg.ID); err != nil {
		return nil, fmt.Errorf("set last message: %w", err)
	}
	s.history.Invalidate(ctx, chat.ID)

	for _, participant := range chat.Participants {
		if participant == sender.ID {
			continue
		}
		connID, ok, err := s.presence.Lookup(ctx, participant)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", participant).Msg("presence lookup failed")
			continue
		}
		if ok {
			s.emitter.EmitToConn(connID, EventReceiveMessage, msg)
		}
	}
	if in.OriginConn != "" {
		s.emitter.EmitToConn(in.OriginConn, EventMessageSentConfirmation, msg)
	}

	origin := in.Origin
	if origin == "" {
		origin = OriginSocket
	}
	metrics.MessagesSent.WithLabelValues(origin).Inc()
	s.publish(ctx, events.MessageCreated, msg.ChatID, msg.ID, msg)

	s.logger.Debug().Str("chat_id", msg.ChatID).Str("message_id", msg.ID).Str("sender", sender.ID).Msg("message sent")
	return msg, nil
}

func (s *MessageService) resolveSender(ctx context.Context, senderID string) (models.Sender, error) {
	if senderID == models.AISenderID {
		return models.Sender{ID: models.AISenderID, Username: models.AISenderName}, nil
	}
	user, err := s.users.GetUser(ctx, senderID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Sender{}, notFoundError("Invalid sender")
	}
	if err != nil {
		return models.Sender{}, fmt.Errorf("get sender: %w", err)
	}
	return models.Sender{ID: user.ID, Username: user.Username}, nil
}

// MarkDelivered flags a message as delivered and tells the chat room.
func (s *MessageService) MarkDelivered(ctx context.Context, chatID, messageID string) (*models.Message, error) {
	if chatID == "" || messageID == "" {
		return nil, validationError("Invalid message data")
	}
	msg, err := s.messages.MarkDelivered(ctx, messageID)
	if err != nil {
		return nil, s.messageErr(err, "mark delivered")
	}
	s.afterUpdate(ctx, chatID, msg, EventMessageDelivered, events.MessageDelivered)
	return msg, nil
}

// MarkRead flags a message as read by userID and tells the chat room.
func (s *MessageService) MarkRead(ctx context.Context, chatID, messageID, userID string) (*models.Message, error) {
	if chatID == "" || messageID == "" || userID == "" {
		return nil, validationError("Invalid message data")
	}
	msg, err := s.messages.MarkRead(ctx, messageID)
	if err != nil {
		return nil, s.messageErr(err, "mark read")
	}
	s.afterUpdate(ctx, chatID, msg, EventMessageRead, events.MessageRead)
	return msg, nil
}

// Edit replaces the content of a message. iv is kept when empty.
func (s *MessageService) Edit(ctx context.Context, messageID, newContent, iv string) (*models.Message, error) {
	content := strings.TrimSpace(newContent)
	if messageID == "" || content == "" {
		return nil, validationError("Invalid edit data")
	}
	msg, err := s.messages.UpdateContent(ctx, messageID, content, iv)
	if err != nil {
		return nil, s.messageErr(err, "edit message")
	}
	s.afterUpdate(ctx, msg.ChatID, msg, EventMessageEdited, events.MessageEdited)
	return msg, nil
}

// Delete removes a message. Deleting a missing message succeeds.
func (s *MessageService) Delete(ctx context.Context, messageID, chatID string) error {
	if messageID == "" || chatID == "" {
		return validationError("Invalid delete data")
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	payload := models.MessageDeleted{MessageID: messageID}
	s.history.Invalidate(ctx, chatID)
	s.emitter.EmitToRoom(chatID, EventMessageDeleted, payload, "")
	metrics.MessageEvents.WithLabelValues(events.MessageDeleted).Inc()
	s.publish(ctx, events.MessageDeleted, chatID, messageID, payload)
	return nil
}

// GetMessage returns a single message.
func (s *MessageService) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, s.messageErr(err, "get message")
	}
	return msg, nil
}

// History returns the JSON array of the most recent messages of a chat the
// requester participates in, served through the history cache.
func (s *MessageService) History(ctx context.Context, chatID, requester string) ([]byte, error) {
	if chatID == "" {
		return nil, validationError("Invalid chatId")
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("Chat not found or not authorized")
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if !chat.HasParticipant(requester) {
		return nil, notFoundError("Chat not found or not authorized")
	}

	return s.history.ReadThrough(ctx, chatID, func(ctx context.Context) ([]byte, error) {
		msgs, err := s.messages.ListRecent(ctx, chatID, s.limit)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		return json.Marshal(msgs)
	})
}

func (s *MessageService) afterUpdate(ctx context.Context, room string, msg *models.Message, event, eventType string) {
	s.history.Invalidate(ctx, msg.ChatID)
	if room != msg.ChatID {
		s.history.Invalidate(ctx, room)
	}
	s.emitter.EmitToRoom(room, event, msg, "")
	metrics.MessageEvents.WithLabelValues(eventType).Inc()
	s.publish(ctx, eventType, msg.ChatID, msg.ID, msg)
}

func (s *MessageService) messageErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError("Message not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *MessageService) publish(ctx context.Context, eventType, chatID, messageID string, payload interface{}) {
	ev := events.Event{
		Type:      eventType,
		ChatID:    chatID,
		MessageID: messageID,
		At:        s.now().UTC(),
		Payload:   payload,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Str("chat_id", chatID).Msg("publish event failed")
	}
}
