package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"livechat/internal/models"
)

// Memory keeps users, chats and messages in process. It backs local
// development without PostgreSQL and the package tests.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]models.User
	chats    map[string]models.Chat
	messages map[string]models.Message
}

var (
	_ UserStore    = (*Memory)(nil)
	_ ChatStore    = (*Memory)(nil)
	_ MessageStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		chats:    make(map[string]models.Chat),
		messages: make(map[string]models.Message),
	}
}

// PutUser inserts or replaces a user.
func (m *Memory) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// PutChat inserts or replaces a chat.
func (m *Memory) PutChat(c models.Chat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Participants = append([]string(nil), c.Participants...)
	m.chats[c.ID] = c
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UpdatePresence(_ context.Context, id string, online bool, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsOnline = online
	u.LastSeen = &lastSeen
	m.users[id] = u
	return nil
}

func (m *Memory) GetChat(_ context.Context, id string) (*models.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Participants = append([]string(nil), c.Participants...)
	return &c, nil
}

func (m *Memory) SetLastMessage(_ context.Context, chatID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	c.LastMessageID = messageID
	m.chats[chatID] = c
	return nil
}

func (m *Memory) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.messages[msg.ID] = *msg
	return nil
}

// populate must be called with m.mu held.
func (m *Memory) populate(msg models.Message) *models.Message {
	msg.Sender = senderFor(msg.Sender.ID, m.users[msg.Sender.ID].Username)
	return &msg
}

func (m *Memory) GetMessage(_ context.Context, id string) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.populate(msg), nil
}

func (m *Memory) update(id string, fn func(*models.Message)) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(&msg)
	m.messages[id] = msg
	return m.populate(msg), nil
}

func (m *Memory) MarkDelivered(_ context.Context, id string) (*models.Message, error) {
	return m.update(id, func(msg *models.Message) { msg.Delivered = true })
}

func (m *Memory) MarkRead(_ context.Context, id string) (*models.Message, error) {
	return m.update(id, func(msg *models.Message) { msg.IsRead = true })
}

func (m *Memory) UpdateContent(_ context.Context, id, content, iv string) (*models.Message, error) {
	return m.update(id, func(msg *models.Message) {
		msg.Content = content
		if iv != "" {
			msg.IV = iv
		}
		msg.Edited = true
	})
}

func (m *Memory) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

func (m *Memory) ListRecent(_ context.Context, chatID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Message, 0)
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, *m.populate(msg))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
