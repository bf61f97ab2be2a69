package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/orbitha/orbitha/internal/storage"
)

type ProfilesStorage struct {
	db *sql.DB
}

func (s *ProfilesStorage) GetProfile(ctx context.Context, userID string) (*storage.Profile, error) {
	const query = `
		SELECT user_id, display_name, calorie_goal, last_seen_at, created_at, updated_at
		FROM profiles WHERE user_id = ?`

	var (
		p                    storage.Profile
		goal                 sql.NullInt64
		lastSeen             sql.NullString
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(userID)).
		Scan(&p.UserID, &p.DisplayName, &goal, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if goal.Valid {
		g := int(goal.Int64)
		p.CalorieGoal = &g
	}
	if p.LastSeenAt, err = parseNullTime(lastSeen); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfilesStorage) UpsertProfile(ctx context.Context, profile *storage.Profile) error {
	now := time.Now().UTC()
	profile.UserID = strings.TrimSpace(profile.UserID)

	const query = `
		INSERT INTO profiles (user_id, display_name, calorie_goal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = excluded.display_name,
		    calorie_goal = excluded.calorie_goal,
		    updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.CalorieGoal,
		formatTime(now),
		formatTime(now),
	); err != nil {
		return err
	}

	stored, err := s.GetProfile(ctx, profile.UserID)
	if err != nil {
		return err
	}
	*profile = *stored
	return nil
}

func (s *ProfilesStorage) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	return affectedOrNotFound(s.db.ExecContext(ctx,
		`UPDATE profiles SET last_seen_at = ? WHERE user_id = ?`,
		formatTime(at), strings.TrimSpace(userID),
	))
}
