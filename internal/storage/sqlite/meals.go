package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type MealsStorage struct {
	db *sql.DB
}

// InsertMealEntry writes the entry in a transaction so a failed items encode never leaves a partial row.
func (s *MealsStorage) InsertMealEntry(ctx context.Context, entry *storage.MealEntry) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meal_entries (id, user_id, meal_name, items, total_calories, local_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.UserID,
		entry.MealName,
		string(items),
		entry.TotalCalories,
		entry.LocalDate,
		formatTime(entry.CreatedAt),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *MealsStorage) ListMealEntries(ctx context.Context, userID string, date string) ([]storage.MealEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, meal_name, items, total_calories, local_date, created_at
		FROM meal_entries
		WHERE user_id = ? AND local_date = ?
		ORDER BY created_at ASC`,
		strings.TrimSpace(userID), date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]storage.MealEntry, 0)
	for rows.Next() {
		var (
			e             storage.MealEntry
			id, createdAt string
			items         string
		)
		if err := rows.Scan(&id, &e.UserID, &e.MealName, &items, &e.TotalCalories, &e.LocalDate, &createdAt); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(items), &e.Items); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *MealsStorage) GetDailySummary(ctx context.Context, userID string, date string) (storage.DailyTotals, error) {
	var totals storage.DailyTotals
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_calories), 0), COUNT(*)
		FROM meal_entries
		WHERE user_id = ? AND local_date = ?`,
		strings.TrimSpace(userID), date,
	).Scan(&totals.TotalCalories, &totals.MealCount)
	return totals, err
}
