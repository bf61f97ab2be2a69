package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orbitha/orbitha/internal/storage"
)

type PostgresProfilesStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresProfilesStorage(pool *pgxpool.Pool) *PostgresProfilesStorage {
	return &PostgresProfilesStorage{pool: pool}
}

func (s *PostgresProfilesStorage) GetProfile(ctx context.Context, userID string) (*storage.Profile, error) {
	const query = `
		SELECT user_id, display_name, calorie_goal, last_seen_at, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p storage.Profile
	err := s.pool.QueryRow(ctx, query, strings.TrimSpace(userID)).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.CalorieGoal,
		&p.LastSeenAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PostgresProfilesStorage) UpsertProfile(ctx context.Context, profile *storage.Profile) error {
	now := time.Now().UTC()
	profile.UserID = strings.TrimSpace(profile.UserID)

	const query = `
		INSERT INTO profiles (user_id, display_name, calorie_goal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    calorie_goal = EXCLUDED.calorie_goal,
		    updated_at = EXCLUDED.updated_at
		RETURNING last_seen_at, created_at, updated_at
	`

	return s.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.CalorieGoal,
		now,
	).Scan(&profile.LastSeenAt, &profile.CreatedAt, &profile.UpdatedAt)
}

func (s *PostgresProfilesStorage) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE profiles SET last_seen_at = $2 WHERE user_id = $1`, strings.TrimSpace(userID), at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
