package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orbitha/orbitha/internal/storage"
)

// PostgresStorage is the Postgres backend. The schema lives in migrations/.
type PostgresStorage struct {
	pool          *pgxpool.Pool
	profiles      *PostgresProfilesStorage
	agents        *PostgresAgentsStorage
	conversations *PostgresConversationsStorage
	messages      *PostgresMessagesStorage
	meals         *PostgresMealsStorage
	usage         *PostgresUsageStorage
}

// New connects to Postgres and makes sure the default agent exists.
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	ps := &PostgresStorage{
		pool:          pool,
		profiles:      NewPostgresProfilesStorage(pool),
		agents:        NewPostgresAgentsStorage(pool),
		conversations: NewPostgresConversationsStorage(pool),
		messages:      NewPostgresMessagesStorage(pool),
		meals:         NewPostgresMealsStorage(pool),
		usage:         NewPostgresUsageStorage(pool),
	}

	if err := ps.ensureDefaultAgent(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (p *PostgresStorage) ensureDefaultAgent(ctx context.Context) error {
	agent := storage.DefaultAgent()
	const query = `
		INSERT INTO agents (id, slug, name, description, avatar_url, system_prompt, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`
	_, err := p.pool.Exec(ctx, query,
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

func (p *PostgresStorage) Profiles() storage.ProfilesStorage           { return p.profiles }
func (p *PostgresStorage) Agents() storage.AgentsStorage               { return p.agents }
func (p *PostgresStorage) Conversations() storage.ConversationsStorage { return p.conversations }
func (p *PostgresStorage) Messages() storage.MessagesStorage           { return p.messages }
func (p *PostgresStorage) Meals() storage.MealsStorage                 { return p.meals }
func (p *PostgresStorage) Usage() storage.UsageStorage                 { return p.usage }

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
