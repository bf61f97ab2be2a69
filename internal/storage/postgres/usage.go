package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orbitha/orbitha/internal/storage"
)

type PostgresUsageStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresUsageStorage(pool *pgxpool.Pool) *PostgresUsageStorage {
	return &PostgresUsageStorage{pool: pool}
}

func (s *PostgresUsageStorage) InsertUsageLog(ctx context.Context, log *storage.UsageLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO usage_logs (id, user_id, function_name, model, prompt_tokens, completion_tokens, estimated_cost_usd, duration_ms, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		log.ID,
		log.UserID,
		log.FunctionName,
		log.Model,
		log.PromptTokens,
		log.CompletionTokens,
		log.EstimatedCostUSD,
		log.DurationMs,
		log.CreatedAt,
	)
	return err
}
