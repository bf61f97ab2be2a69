package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type ConversationsStorage struct {
	db *sql.DB
}

const conversationColumns = `id, user_id, agent_id, title, style, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ConversationsStorage) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	conv.UserID = strings.TrimSpace(conv.UserID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID.String(),
		conv.UserID,
		conv.AgentID.String(),
		conv.Title,
		conv.Style,
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
	)
	return err
}

func (s *ConversationsStorage) GetConversation(ctx context.Context, userID string, id uuid.UUID) (*storage.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND user_id = ?`,
		id.String(), strings.TrimSpace(userID),
	)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return c, err
}

func (s *ConversationsStorage) ListConversations(ctx context.Context, userID string, agentID uuid.UUID) ([]storage.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = ? AND agent_id = ?
		ORDER BY updated_at DESC, created_at DESC`,
		strings.TrimSpace(userID), agentID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]storage.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (s *ConversationsStorage) TouchConversation(ctx context.Context, userID string, id uuid.UUID, at time.Time) error {
	return affectedOrNotFound(s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ? AND user_id = ?`,
		formatTime(at), id.String(), strings.TrimSpace(userID),
	))
}

func (s *ConversationsStorage) UpdateConversationTitle(ctx context.Context, userID string, id uuid.UUID, title string, at time.Time) error {
	return affectedOrNotFound(s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, formatTime(at), id.String(), strings.TrimSpace(userID),
	))
}

func (s *ConversationsStorage) UpdateConversationStyle(ctx context.Context, userID string, id uuid.UUID, style string, at time.Time) error {
	return affectedOrNotFound(s.db.ExecContext(ctx,
		`UPDATE conversations SET style = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		style, formatTime(at), id.String(), strings.TrimSpace(userID),
	))
}

func (s *ConversationsStorage) DeleteConversation(ctx context.Context, userID string, id uuid.UUID) error {
	return affectedOrNotFound(s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`,
		id.String(), strings.TrimSpace(userID),
	))
}

func scanConversation(row rowScanner) (*storage.Conversation, error) {
	var (
		c                    storage.Conversation
		id, agentID          string
		title                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &c.UserID, &agentID, &title, &c.Style, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if c.AgentID, err = uuid.Parse(agentID); err != nil {
		return nil, err
	}
	if title.Valid {
		t := title.String
		c.Title = &t
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
