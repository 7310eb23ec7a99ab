package models

import "time"

const (
	// AISenderID is the reserved sender identity of the automated assistant.
	AISenderID = "ai"
	// AISenderName is the display name attached to assistant messages.
	AISenderName = "AI Assistant"
)

// Sender is the populated sender reference sent to clients.
type Sender struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Message is a single chat message. Content and IV are opaque ciphertext;
// file messages carry a FileURL instead.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chatId"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	IV        string    `json:"iv"`
	FileURL   string    `json:"fileUrl"`
	Delivered bool      `json:"delivered"`
	IsRead    bool      `json:"isRead"`
	Edited    bool      `json:"edited"`
	IsAI      bool      `json:"isAI"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsFile reports whether the message references an uploaded file.
func (m *Message) IsFile() bool {
	return m.FileURL != ""
}

// SendMessageRequest is the payload of the sendMessage event and the REST send body.
type SendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Sender  string `json:"sender,omitempty"`
	Content string `json:"content"`
	IV      string `json:"iv"`
	FileURL string `json:"fileUrl"`
}

// MessageStatusRequest is the payload of messageDelivered and messageRead.
type MessageStatusRequest struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId,omitempty"`
}

// EditMessageRequest is the payload of editMessage and the REST edit body.
type EditMessageRequest struct {
	MessageID  string `json:"messageId,omitempty"`
	NewContent string `json:"newContent"`
	IV         string `json:"iv,omitempty"`
}

// DeleteMessageRequest is the payload of deleteMessage.
type DeleteMessageRequest struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
}

// MessageDeleted is broadcast to a chat room after a delete.
type MessageDeleted struct {
	MessageID string `json:"messageId"`
}
