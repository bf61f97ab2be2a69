package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type AgentsStorage struct {
	db *sql.DB
}

const agentColumns = `id, slug, name, description, avatar_url, system_prompt, model, created_at`

func (s *AgentsStorage) GetAgent(ctx context.Context, id uuid.UUID) (*storage.Agent, error) {
	return scanAgent(s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id.String()))
}

func (s *AgentsStorage) GetAgentBySlug(ctx context.Context, slug string) (*storage.Agent, error) {
	return scanAgent(s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE slug = ?`, strings.TrimSpace(slug)))
}

func (s *AgentsStorage) UpsertAgent(ctx context.Context, agent *storage.Agent) error {
	const query = `
		INSERT INTO agents (` + agentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET slug = excluded.slug,
		    name = excluded.name,
		    description = excluded.description,
		    avatar_url = excluded.avatar_url,
		    system_prompt = excluded.system_prompt,
		    model = excluded.model`

	_, err := s.db.ExecContext(ctx, query,
		agent.ID.String(),
		agent.Slug,
		agent.Name,
		agent.Description,
		agent.AvatarURL,
		agent.SystemPrompt,
		agent.Model,
		formatTime(agent.CreatedAt),
	)
	return err
}

func scanAgent(row *sql.Row) (*storage.Agent, error) {
	var (
		a         storage.Agent
		id        string
		createdAt string
	)
	err := row.Scan(&id, &a.Slug, &a.Name, &a.Description, &a.AvatarURL, &a.SystemPrompt, &a.Model, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}
