// Package store defines the record stores the realtime engine reads and
// writes, with PostgreSQL and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"livechat/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// UserStore reads users and records their presence.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdatePresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
}

// ChatStore reads chats with their participants.
type ChatStore interface {
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	SetLastMessage(ctx context.Context, chatID, messageID string) error
}

// MessageStore persists messages. Reads return the message with its
// sender populated.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	MarkDelivered(ctx context.Context, id string) (*models.Message, error)
	MarkRead(ctx context.Context, id string) (*models.Message, error)
	// UpdateContent overwrites content (and iv when non-empty) and sets edited.
	UpdateContent(ctx context.Context, id, content, iv string) (*models.Message, error)
	// DeleteMessage succeeds whether or not the message exists.
	DeleteMessage(ctx context.Context, id string) error
	// ListRecent returns the most recent limit messages of a chat, oldest first.
	ListRecent(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

// senderFor resolves the display reference of a sender id.
func senderFor(senderID, username string) models.Sender {
	if senderID == models.AISenderID {
		return models.Sender{ID: models.AISenderID, Username: models.AISenderName}
	}
	return models.Sender{ID: senderID, Username: username}
}
