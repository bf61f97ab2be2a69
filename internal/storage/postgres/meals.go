package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orbitha/orbitha/internal/storage"
)

type PostgresMealsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresMealsStorage(pool *pgxpool.Pool) *PostgresMealsStorage {
	return &PostgresMealsStorage{pool: pool}
}

func (s *PostgresMealsStorage) InsertMealEntry(ctx context.Context, entry *storage.MealEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.UserID = strings.TrimSpace(entry.UserID)

	items, err := json.Marshal(entry.Items)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO meal_entries (id, user_id, meal_name, items, total_calories, local_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.MealName,
		items,
		entry.TotalCalories,
		entry.LocalDate,
		entry.CreatedAt,
	)
	return err
}

func (s *PostgresMealsStorage) ListMealEntries(ctx context.Context, userID string, date string) ([]storage.MealEntry, error) {
	const query = `
		SELECT id, user_id, meal_name, items, total_calories, to_char(local_date, 'YYYY-MM-DD'), created_at
		FROM meal_entries
		WHERE user_id = $1 AND local_date = $2::date
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, strings.TrimSpace(userID), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]storage.MealEntry, 0)
	for rows.Next() {
		var (
			e     storage.MealEntry
			items []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.MealName, &items, &e.TotalCalories, &e.LocalDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &e.Items); err != nil {
				return nil, err
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetDailySummary calls the get_daily_summary SQL function.
func (s *PostgresMealsStorage) GetDailySummary(ctx context.Context, userID string, date string) (storage.DailyTotals, error) {
	var totals storage.DailyTotals
	err := s.pool.QueryRow(ctx,
		`SELECT total_calories, meal_count FROM get_daily_summary($1::date, $2)`,
		date, strings.TrimSpace(userID),
	).Scan(&totals.TotalCalories, &totals.MealCount)
	return totals, err
}
