package nutrition

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitha/orbitha/internal/actions"
	"github.com/orbitha/orbitha/internal/storage"
	"github.com/orbitha/orbitha/internal/storage/memory"
)

var saoPaulo = LoadLocation(DefaultTimeZone)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, saoPaulo)
}

func newTestService(t *testing.T) (*Service, *memory.MemoryStorage) {
	t.Helper()
	store := memory.New()
	svc := NewService(store.Meals(), store.Profiles(), saoPaulo).WithClock(func() time.Time { return at(12, 30) })
	return svc, store
}

func TestMealSlot(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{4, 59, SlotLateSnack},
		{5, 0, SlotBreakfast},
		{10, 59, SlotBreakfast},
		{11, 0, SlotLunch},
		{12, 30, SlotLunch},
		{14, 59, SlotLunch},
		{15, 0, SlotSnack},
		{17, 59, SlotSnack},
		{18, 0, SlotDinner},
		{21, 59, SlotDinner},
		{22, 0, SlotLateSnack},
		{0, 0, SlotLateSnack},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MealSlot(at(tt.hour, tt.minute), saoPaulo), "%02d:%02d", tt.hour, tt.minute)
	}
}

func TestMealSlotUsesZoneNotUTC(t *testing.T) {
	// 15:30 UTC is 12:30 in São Paulo
	utc := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, SlotLunch, MealSlot(utc, saoPaulo))
}

func TestNormalizeMealName(t *testing.T) {
	got, ok := NormalizeMealName("  Almoco ")
	assert.True(t, ok)
	assert.Equal(t, SlotLunch, got)

	_, ok = NormalizeMealName("brunch")
	assert.False(t, ok)
}

func TestDailySummaryMatchesEntries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meal := func(total int) actions.Meal {
		return actions.Meal{Items: []actions.MealItem{{Name: "x", Calories: total}}, TotalCalories: total}
	}
	_, err := svc.RecordMeal(ctx, "ana", meal(450), at(8, 0))
	require.NoError(t, err)
	_, err = svc.RecordMeal(ctx, "ana", meal(700), at(12, 10))
	require.NoError(t, err)
	// other day and other user
	_, err = svc.RecordMeal(ctx, "ana", meal(300), at(8, 0).AddDate(0, 0, -1))
	require.NoError(t, err)
	_, err = svc.RecordMeal(ctx, "bia", meal(999), at(9, 0))
	require.NoError(t, err)

	summary, err := svc.DailySummary(ctx, "ana", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", summary.Date)
	assert.Equal(t, 1150, summary.TotalCalories)
	assert.Equal(t, 2, summary.MealCount)
	assert.Nil(t, summary.CalorieGoal)
	assert.False(t, summary.GoalMet)

	goal := 1000
	require.NoError(t, store.Profiles().UpsertProfile(ctx, &storage.Profile{UserID: "ana", DisplayName: "Ana", CalorieGoal: &goal}))

	summary, err = svc.DailySummary(ctx, "ana", "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, summary.CalorieGoal)
	assert.Equal(t, 1000, *summary.CalorieGoal)
	assert.Equal(t, 0, *summary.RemainingCalories)
	assert.True(t, summary.GoalMet)
}

func TestDailySummaryInvalidDate(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.DailySummary(context.Background(), "ana", "10/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestRecordMeal(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	t.Run("KnownModelNameWins", func(t *testing.T) {
		entry, err := svc.RecordMeal(ctx, "ana", actions.Meal{
			MealName:      "Jantar",
			Items:         []actions.MealItem{{Name: "sopa", Quantity: "1 prato", Calories: 200}},
			TotalCalories: 200,
		}, at(12, 30))
		require.NoError(t, err)
		assert.Equal(t, SlotDinner, entry.MealName)
	})

	t.Run("UnknownNameUsesClock", func(t *testing.T) {
		entry, err := svc.RecordMeal(ctx, "ana", actions.Meal{
			MealName:      "refeição",
			Items:         []actions.MealItem{{Name: "arroz", Quantity: "150g", Calories: 195}},
			TotalCalories: 196,
		}, at(12, 30))
		require.NoError(t, err)
		assert.Equal(t, SlotLunch, entry.MealName)
		assert.Equal(t, "2025-03-10", entry.LocalDate)
	})

	t.Run("LateNightBelongsToLocalDay", func(t *testing.T) {
		// 23:30 local is already the next day in UTC
		entry, err := svc.RecordMeal(ctx, "ana", actions.Meal{
			Items:         []actions.MealItem{{Name: "chá"}},
			TotalCalories: 5,
		}, at(23, 30))
		require.NoError(t, err)
		assert.Equal(t, SlotLateSnack, entry.MealName)
		assert.Equal(t, "2025-03-10", entry.LocalDate)
	})

	t.Run("NoItems", func(t *testing.T) {
		_, err := svc.RecordMeal(ctx, "ana", actions.Meal{TotalCalories: 10}, at(12, 0))
		assert.ErrorIs(t, err, ErrNoItems)
	})

	entries, err := store.Meals().ListMealEntries(ctx, "ana", "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "Nenhuma refeição registrada hoje ainda.", SummaryText(DailySummary{Date: "2025-03-10"}, nil))

	goal, remaining := 2000, 1350
	text := SummaryText(DailySummary{
		Date:              "2025-03-10",
		TotalCalories:     650,
		MealCount:         1,
		CalorieGoal:       &goal,
		RemainingCalories: &remaining,
	}, []MealEntryDTO{{MealName: SlotLunch, TotalCalories: 650, Items: []MealItemDTO{{Name: "arroz"}, {Name: "feijão"}}}})

	assert.Contains(t, text, "650 kcal consumidas em 1 refeição.")
	assert.Contains(t, text, "Meta diária: 2000 kcal.")
	assert.Contains(t, text, "Restam 1350 kcal.")
	assert.Contains(t, text, "- almoço: 650 kcal (arroz, feijão)")
}

func TestPromptSummaryEmptyDay(t *testing.T) {
	svc, _ := newTestService(t)
	text, err := svc.PromptSummary(context.Background(), "nobody", at(12, 30))
	require.NoError(t, err)
	assert.Equal(t, "Nenhuma refeição registrada hoje ainda.", text)
}

func TestDiaryPDF(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordMeal(ctx, "ana", actions.Meal{
		Items:         []actions.MealItem{{Name: "pão de queijo", Quantity: "2 un", Calories: 240}},
		TotalCalories: 240,
	}, at(8, 0))
	require.NoError(t, err)

	doc, err := svc.DiaryPDF(ctx, "ana", "2025-03-10")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
}
