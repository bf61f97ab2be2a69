package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type UsageStorage struct {
	db *sql.DB
}

func (s *UsageStorage) InsertUsageLog(ctx context.Context, log *storage.UsageLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var userID sql.NullString
	if log.UserID != "" {
		userID = sql.NullString{String: log.UserID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_logs (id, user_id, function_name, model, prompt_tokens, completion_tokens, estimated_cost_usd, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID.String(),
		userID,
		log.FunctionName,
		log.Model,
		log.PromptTokens,
		log.CompletionTokens,
		log.EstimatedCostUSD,
		log.DurationMs,
		formatTime(log.CreatedAt),
	)
	return err
}
