package nutrition

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Meal categories, in Portuguese as they are shown to users.
const (
	SlotBreakfast = "café da manhã"
	SlotLunch     = "almoço"
	SlotSnack     = "lanche"
	SlotDinner    = "jantar"
	SlotLateSnack = "ceia"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrNoItems     = errors.New("meal has no items")
)

// DailySummary is the per-day aggregate. It is never stored.
type DailySummary struct {
	Date              string `json:"date"`
	TotalCalories     int    `json:"total_calories"`
	MealCount         int    `json:"meal_count"`
	CalorieGoal       *int   `json:"calorie_goal,omitempty"`
	RemainingCalories *int   `json:"remaining_calories,omitempty"`
	GoalMet           bool   `json:"goal_met"`
}

type MealItemDTO struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Calories int    `json:"calories"`
}

type MealEntryDTO struct {
	ID            uuid.UUID     `json:"id"`
	MealName      string        `json:"meal_name"`
	Items         []MealItemDTO `json:"items"`
	TotalCalories int           `json:"total_calories"`
	LocalDate     string        `json:"local_date"`
	CreatedAt     time.Time     `json:"created_at"`
}

type ListMealsResponse struct {
	Date  string         `json:"date"`
	Meals []MealEntryDTO `json:"meals"`
}
