package models

import "time"

// Chat is a conversation between participants.
type Chat struct {
	ID            string    `json:"_id"`
	Participants  []string  `json:"participants"`
	LastMessageID string    `json:"lastMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID takes part in the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
