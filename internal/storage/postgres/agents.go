package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orbitha/orbitha/internal/storage"
)

type PostgresAgentsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresAgentsStorage(pool *pgxpool.Pool) *PostgresAgentsStorage {
	return &PostgresAgentsStorage{pool: pool}
}

const agentColumns = `id, slug, name, description, avatar_url, system_prompt, model, created_at`

func (s *PostgresAgentsStorage) GetAgent(ctx context.Context, id uuid.UUID) (*storage.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

func (s *PostgresAgentsStorage) GetAgentBySlug(ctx context.Context, slug string) (*storage.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE slug = $1`, strings.TrimSpace(slug))
	return scanAgent(row)
}

func (s *PostgresAgentsStorage) UpsertAgent(ctx context.Context, agent *storage.Agent) error {
	const query = `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET slug = EXCLUDED.slug,
		    name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    avatar_url = EXCLUDED.avatar_url,
		    system_prompt = EXCLUDED.system_prompt,
		    model = EXCLUDED.model
	`
	_, err := s.pool.Exec(ctx, query,
		agent.ID,
		agent.Slug,
		agent.Name,
		agent.Description,
		agent.AvatarURL,
		agent.SystemPrompt,
		agent.Model,
		agent.CreatedAt,
	)
	return err
}

func scanAgent(row pgx.Row) (*storage.Agent, error) {
	var a storage.Agent
	if err := row.Scan(
		&a.ID,
		&a.Slug,
		&a.Name,
		&a.Description,
		&a.AvatarURL,
		&a.SystemPrompt,
		&a.Model,
		&a.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
