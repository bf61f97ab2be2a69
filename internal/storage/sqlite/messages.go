package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

// MessagesStorage orders by the autoincrement seq column, which follows insertion order.
type MessagesStorage struct {
	db *sql.DB
}

const messageColumns = `id, user_id, agent_id, conversation_id, role, content, image_key, created_at`

func (s *MessagesStorage) InsertMessage(ctx context.Context, msg *storage.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.Role = strings.TrimSpace(msg.Role)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID.String(),
		msg.UserID,
		msg.AgentID.String(),
		msg.ConversationID.String(),
		msg.Role,
		msg.Content,
		msg.ImageKey,
		formatTime(msg.CreatedAt),
	)
	return err
}

func (s *MessagesStorage) ListMessages(ctx context.Context, userID string, conversationID uuid.UUID) ([]storage.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE user_id = ? AND conversation_id = ?
		ORDER BY seq ASC`,
		strings.TrimSpace(userID), conversationID.String(),
	)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *MessagesStorage) ListRecentMessages(ctx context.Context, userID string, conversationID uuid.UUID, limit int, excludeID uuid.UUID) ([]storage.Message, error) {
	if limit <= 0 {
		return []storage.Message{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM (
			SELECT seq, `+messageColumns+` FROM messages
			WHERE user_id = ? AND conversation_id = ? AND id <> ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`,
		strings.TrimSpace(userID), conversationID.String(), excludeID.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *MessagesStorage) DeleteConversationMessages(ctx context.Context, userID string, conversationID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE user_id = ? AND conversation_id = ?`,
		strings.TrimSpace(userID), conversationID.String(),
	)
	return err
}

func collectMessages(rows *sql.Rows) ([]storage.Message, error) {
	defer rows.Close()

	result := make([]storage.Message, 0)
	for rows.Next() {
		var (
			msg                         storage.Message
			id, agentID, conversationID string
			imageKey                    sql.NullString
			createdAt                   string
		)
		if err := rows.Scan(&id, &msg.UserID, &agentID, &conversationID, &msg.Role, &msg.Content, &imageKey, &createdAt); err != nil {
			return nil, err
		}

		var err error
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if msg.AgentID, err = uuid.Parse(agentID); err != nil {
			return nil, err
		}
		if msg.ConversationID, err = uuid.Parse(conversationID); err != nil {
			return nil, err
		}
		if imageKey.Valid {
			k := imageKey.String
			msg.ImageKey = &k
		}
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
