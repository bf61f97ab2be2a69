package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type MealsMemoryStorage struct {
	mu      sync.RWMutex
	entries []storage.MealEntry
}

func NewMealsMemoryStorage() *MealsMemoryStorage {
	return &MealsMemoryStorage{entries: make([]storage.MealEntry, 0)}
}

func (s *MealsMemoryStorage) InsertMealEntry(ctx context.Context, entry *storage.MealEntry) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.UserID = strings.TrimSpace(entry.UserID)

	stored := *entry
	stored.Items = append([]storage.MealItem(nil), entry.Items...)
	s.entries = append(s.entries, stored)
	return nil
}

func (s *MealsMemoryStorage) ListMealEntries(ctx context.Context, userID string, date string) ([]storage.MealEntry, error) {
	_ = ctx

	userID = strings.TrimSpace(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.MealEntry, 0)
	for _, e := range s.entries {
		if e.UserID == userID && e.LocalDate == date {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MealsMemoryStorage) GetDailySummary(ctx context.Context, userID string, date string) (storage.DailyTotals, error) {
	entries, err := s.ListMealEntries(ctx, userID, date)
	if err != nil {
		return storage.DailyTotals{}, err
	}

	var totals storage.DailyTotals
	for _, e := range entries {
		totals.TotalCalories += e.TotalCalories
		totals.MealCount++
	}
	return totals, nil
}
