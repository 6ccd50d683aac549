package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stoik/triage/internal/models"
)

const foreignKeyViolation = "23503"

func (s *Store) CreateConversation(ctx context.Context, title string) (models.Conversation, error) {
	conv := models.Conversation{ID: uuid.New(), Title: title}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, title) VALUES ($1, $2) RETURNING created_at`,
		conv.ID, conv.Title,
	).Scan(&conv.CreatedAt)
	if err != nil {
		return conv, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	var conv models.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return conv, ErrConversationNotFound
	}
	if err != nil {
		return conv, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns conversations newest first.
func (s *Store) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at FROM conversations ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// AddMessage appends a message to a conversation transcript.
func (s *Store) AddMessage(ctx context.Context, conversationID uuid.UUID, role models.Role, content string) (models.StoredMessage, error) {
	msg := models.StoredMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, msg.ID, msg.ConversationID, string(msg.Role), msg.Content).Scan(&msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return msg, ErrConversationNotFound
		}
		return msg, fmt.Errorf("failed to add message: %w", err)
	}

	return msg, nil
}

// GetMessages returns a transcript in insertion order.
func (s *Store) GetMessages(ctx context.Context, conversationID uuid.UUID) ([]models.StoredMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.StoredMessage{}
	for rows.Next() {
		var (
			m    models.StoredMessage
			role string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = models.Role(role)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
