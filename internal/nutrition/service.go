package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orbitha/orbitha/internal/actions"
	"github.com/orbitha/orbitha/internal/storage"
)

// Service owns meal entries and the daily aggregate built from them.
type Service struct {
	meals    storage.MealsStorage
	profiles storage.ProfilesStorage
	loc      *time.Location
	now      func() time.Time
}

func NewService(meals storage.MealsStorage, profiles storage.ProfilesStorage, loc *time.Location) *Service {
	if loc == nil {
		loc = LoadLocation(DefaultTimeZone)
	}
	return &Service{
		meals:    meals,
		profiles: profiles,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests and the chat service.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// LocalDate is the calendar day of t in the service zone.
func (s *Service) LocalDate(t time.Time) string {
	return t.In(s.loc).Format(dateLayout)
}

func (s *Service) Today() string {
	return s.LocalDate(s.now())
}

// ResolveDate validates a YYYY-MM-DD query value; empty means today.
func (s *Service) ResolveDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.Today(), nil
	}
	if _, err := time.ParseInLocation(dateLayout, raw, s.loc); err != nil {
		return "", ErrInvalidDate
	}
	return raw, nil
}

// DailySummary aggregates the user's meals for date and joins the calorie goal.
// A missing profile just means there is no goal.
func (s *Service) DailySummary(ctx context.Context, userID, date string) (DailySummary, error) {
	date, err := s.ResolveDate(date)
	if err != nil {
		return DailySummary{}, err
	}

	totals, err := s.meals.GetDailySummary(ctx, userID, date)
	if err != nil {
		return DailySummary{}, fmt.Errorf("get daily summary: %w", err)
	}

	summary := DailySummary{
		Date:          date,
		TotalCalories: totals.TotalCalories,
		MealCount:     totals.MealCount,
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		applyGoal(&summary, profile.CalorieGoal)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return DailySummary{}, fmt.Errorf("get profile: %w", err)
	}

	return summary, nil
}

func applyGoal(summary *DailySummary, goal *int) {
	if goal == nil || *goal <= 0 {
		return
	}
	g := *goal
	remaining := max(g-summary.TotalCalories, 0)
	summary.CalorieGoal = &g
	summary.RemainingCalories = &remaining
	summary.GoalMet = summary.TotalCalories >= g
}

func (s *Service) ListMeals(ctx context.Context, userID, date string) (ListMealsResponse, error) {
	date, err := s.ResolveDate(date)
	if err != nil {
		return ListMealsResponse{}, err
	}

	entries, err := s.meals.ListMealEntries(ctx, userID, date)
	if err != nil {
		return ListMealsResponse{}, fmt.Errorf("list meal entries: %w", err)
	}

	resp := ListMealsResponse{Date: date, Meals: make([]MealEntryDTO, 0, len(entries))}
	for _, e := range entries {
		resp.Meals = append(resp.Meals, toDTO(e))
	}
	return resp, nil
}

// RecordMeal persists a parsed save_meal action logged at time at. The meal
// name follows the model when it names a known category, else the clock.
func (s *Service) RecordMeal(ctx context.Context, userID string, meal actions.Meal, at time.Time) (*storage.MealEntry, error) {
	if len(meal.Items) == 0 {
		return nil, ErrNoItems
	}

	name, ok := NormalizeMealName(meal.MealName)
	if !ok {
		name = MealSlot(at, s.loc)
	}

	items := make([]storage.MealItem, 0, len(meal.Items))
	for _, it := range meal.Items {
		items = append(items, storage.MealItem{Name: it.Name, Quantity: it.Quantity, Calories: it.Calories})
	}

	entry := &storage.MealEntry{
		UserID:        userID,
		MealName:      name,
		Items:         items,
		TotalCalories: meal.TotalCalories,
		LocalDate:     s.LocalDate(at),
		CreatedAt:     at.UTC(),
	}
	if err := s.meals.InsertMealEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert meal entry: %w", err)
	}
	return entry, nil
}

// PromptSummary renders today's aggregate and meals for the system prompt.
func (s *Service) PromptSummary(ctx context.Context, userID string, at time.Time) (string, error) {
	date := s.LocalDate(at)
	summary, err := s.DailySummary(ctx, userID, date)
	if err != nil {
		return "", err
	}
	meals, err := s.ListMeals(ctx, userID, date)
	if err != nil {
		return "", err
	}
	return SummaryText(summary, meals.Meals), nil
}

// SummaryText is the Portuguese rendering of a day for the model.
func SummaryText(summary DailySummary, meals []MealEntryDTO) string {
	if summary.MealCount == 0 {
		text := "Nenhuma refeição registrada hoje ainda."
		if summary.CalorieGoal != nil {
			text += fmt.Sprintf(" Meta diária: %d kcal.", *summary.CalorieGoal)
		}
		return text
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Resumo de hoje (%s): %d kcal consumidas em %d %s.",
		summary.Date, summary.TotalCalories, summary.MealCount, plural(summary.MealCount, "refeição", "refeições"))

	if summary.CalorieGoal != nil {
		fmt.Fprintf(&b, " Meta diária: %d kcal.", *summary.CalorieGoal)
		if summary.GoalMet {
			b.WriteString(" Meta atingida.")
		} else {
			fmt.Fprintf(&b, " Restam %d kcal.", *summary.RemainingCalories)
		}
	}

	for _, m := range meals {
		names := make([]string, 0, len(m.Items))
		for _, it := range m.Items {
			names = append(names, it.Name)
		}
		fmt.Fprintf(&b, "\n- %s: %d kcal (%s)", m.MealName, m.TotalCalories, strings.Join(names, ", "))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func toDTO(e storage.MealEntry) MealEntryDTO {
	items := make([]MealItemDTO, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, MealItemDTO{Name: it.Name, Quantity: it.Quantity, Calories: it.Calories})
	}
	return MealEntryDTO{
		ID:            e.ID,
		MealName:      e.MealName,
		Items:         items,
		TotalCalories: e.TotalCalories,
		LocalDate:     e.LocalDate,
		CreatedAt:     e.CreatedAt,
	}
}
