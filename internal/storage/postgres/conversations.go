package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orbitha/orbitha/internal/storage"
)

type PostgresConversationsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresConversationsStorage(pool *pgxpool.Pool) *PostgresConversationsStorage {
	return &PostgresConversationsStorage{pool: pool}
}

const conversationColumns = `id, user_id, agent_id, title, style, created_at, updated_at`

func (s *PostgresConversationsStorage) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
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

	const query = `
		INSERT INTO conversations (` + conversationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		conv.ID,
		conv.UserID,
		conv.AgentID,
		conv.Title,
		conv.Style,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	return err
}

func (s *PostgresConversationsStorage) GetConversation(ctx context.Context, userID string, id uuid.UUID) (*storage.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1 AND user_id = $2`,
		id, strings.TrimSpace(userID),
	)
	c, err := scanConversation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *PostgresConversationsStorage) ListConversations(ctx context.Context, userID string, agentID uuid.UUID) ([]storage.Conversation, error) {
	const query = `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1 AND agent_id = $2
		ORDER BY updated_at DESC, created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(userID), agentID)
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

func (s *PostgresConversationsStorage) TouchConversation(ctx context.Context, userID string, id uuid.UUID, at time.Time) error {
	return s.exec(ctx, `UPDATE conversations SET updated_at = $3 WHERE id = $1 AND user_id = $2`, id, strings.TrimSpace(userID), at.UTC())
}

func (s *PostgresConversationsStorage) UpdateConversationTitle(ctx context.Context, userID string, id uuid.UUID, title string, at time.Time) error {
	return s.exec(ctx, `UPDATE conversations SET title = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`, id, strings.TrimSpace(userID), title, at.UTC())
}

func (s *PostgresConversationsStorage) UpdateConversationStyle(ctx context.Context, userID string, id uuid.UUID, style string, at time.Time) error {
	return s.exec(ctx, `UPDATE conversations SET style = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`, id, strings.TrimSpace(userID), style, at.UTC())
}

func (s *PostgresConversationsStorage) DeleteConversation(ctx context.Context, userID string, id uuid.UUID) error {
	return s.exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, strings.TrimSpace(userID))
}

func (s *PostgresConversationsStorage) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*storage.Conversation, error) {
	var c storage.Conversation
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.AgentID,
		&c.Title,
		&c.Style,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
