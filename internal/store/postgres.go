package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"livechat/internal/models"
)

// Postgres implements the user, chat and message stores on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ UserStore    = (*Postgres)(nil)
	_ ChatStore    = (*Postgres)(nil)
	_ MessageStore = (*Postgres)(nil)
)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	query := `SELECT id, username, is_online, last_seen FROM users WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.IsOnline, &u.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (s *Postgres) UpdatePresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`, id, online, lastSeen)
	if err != nil {
		return fmt.Errorf("update presence %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	query := `
		SELECT c.id, COALESCE(c.last_message_id, ''), c.created_at,
		       COALESCE(array_agg(p.user_id ORDER BY p.position) FILTER (WHERE p.user_id IS NOT NULL), '{}')
		FROM chats c
		LEFT JOIN chat_participants p ON p.chat_id = c.id
		WHERE c.id = $1
		GROUP BY c.id
	`
	var c models.Chat
	err := s.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.LastMessageID, &c.CreatedAt, &c.Participants)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", id, err)
	}
	return &c, nil
}

func (s *Postgres) SetLastMessage(ctx context.Context, chatID, messageID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE chats SET last_message_id = $2 WHERE id = $1`, chatID, messageID)
	if err != nil {
		return fmt.Errorf("set last message of %s: %w", chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, iv, file_url, delivered, is_read, edited, is_ai)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		msg.ID, msg.ChatID, msg.Sender.ID, msg.Content, msg.IV, msg.FileURL,
		msg.Delivered, msg.IsRead, msg.Edited, msg.IsAI,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// messageColumns selects a message row joined with its sender's username.
// The source relation must be aliased m.
const messageColumns = `
	m.id, m.chat_id, m.sender_id, COALESCE(u.username, ''), m.content, m.iv, m.file_url,
	m.delivered, m.is_read, m.edited, m.is_ai, m.created_at
`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		msg      models.Message
		senderID string
		username string
	)
	err := row.Scan(&msg.ID, &msg.ChatID, &senderID, &username, &msg.Content, &msg.IV, &msg.FileURL,
		&msg.Delivered, &msg.IsRead, &msg.Edited, &msg.IsAI, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	msg.Sender = senderFor(senderID, username)
	return &msg, nil
}

func (s *Postgres) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m LEFT JOIN users u ON u.id = m.sender_id WHERE m.id = $1`
	msg, err := scanMessage(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

// updateMessage runs an UPDATE ... RETURNING * named m inside a CTE and
// returns the populated row.
func (s *Postgres) updateMessage(ctx context.Context, set string, args ...any) (*models.Message, error) {
	query := `
		WITH m AS (UPDATE messages SET ` + set + ` WHERE id = $1 RETURNING *)
		SELECT ` + messageColumns + ` FROM m LEFT JOIN users u ON u.id = m.sender_id
	`
	msg, err := scanMessage(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	return msg, nil
}

func (s *Postgres) MarkDelivered(ctx context.Context, id string) (*models.Message, error) {
	return s.updateMessage(ctx, `delivered = true`, id)
}

func (s *Postgres) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	return s.updateMessage(ctx, `is_read = true`, id)
}

func (s *Postgres) UpdateContent(ctx context.Context, id, content, iv string) (*models.Message, error) {
	return s.updateMessage(ctx, `content = $2, iv = COALESCE(NULLIF($3, ''), iv), edited = true`, id, content, iv)
}

func (s *Postgres) DeleteMessage(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

func (s *Postgres) ListRecent(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	query := `
		SELECT * FROM (
			SELECT ` + messageColumns + `
			FROM messages m
			LEFT JOIN users u ON u.id = m.sender_id
			WHERE m.chat_id = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", chatID, err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}
