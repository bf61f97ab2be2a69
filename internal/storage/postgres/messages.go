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

type PostgresMessagesStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresMessagesStorage(pool *pgxpool.Pool) *PostgresMessagesStorage {
	return &PostgresMessagesStorage{pool: pool}
}

const messageColumns = `id, user_id, agent_id, conversation_id, role, content, image_key, created_at`

func (s *PostgresMessagesStorage) InsertMessage(ctx context.Context, msg *storage.Message) error {
	if msg.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		msg.ID = id
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.Role = strings.TrimSpace(msg.Role)

	const query = `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		msg.ID,
		msg.UserID,
		msg.AgentID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.ImageKey,
		msg.CreatedAt,
	)
	return err
}

func (s *PostgresMessagesStorage) ListMessages(ctx context.Context, userID string, conversationID uuid.UUID) ([]storage.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(userID), conversationID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *PostgresMessagesStorage) ListRecentMessages(ctx context.Context, userID string, conversationID uuid.UUID, limit int, excludeID uuid.UUID) ([]storage.Message, error) {
	if limit <= 0 {
		return []storage.Message{}, nil
	}

	const query = `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE user_id = $1
			  AND conversation_id = $2
			  AND id <> $3
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		) latest
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(userID), conversationID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *PostgresMessagesStorage) DeleteConversationMessages(ctx context.Context, userID string, conversationID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM messages WHERE user_id = $1 AND conversation_id = $2`,
		strings.TrimSpace(userID), conversationID,
	)
	return err
}

func collectMessages(rows pgx.Rows) ([]storage.Message, error) {
	defer rows.Close()

	result := make([]storage.Message, 0)
	for rows.Next() {
		var msg storage.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.AgentID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.ImageKey,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
