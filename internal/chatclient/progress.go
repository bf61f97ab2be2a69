package chatclient

import (
	"fmt"
	"strings"
)

// Progress is the rendered daily summary card.
type Progress struct {
	Calories  int
	Meals     int
	Goal      *int
	Remaining *int
	GoalMet   bool
	// Ratio of calories to goal in [0, 1]; zero without a goal.
	Ratio float64
}

// NewProgress derives the card from a summary. A nil summary yields a zero card.
func NewProgress(s *DailySummary) Progress {
	if s == nil {
		return Progress{}
	}
	p := Progress{Calories: s.TotalCalories, Meals: s.MealCount, GoalMet: s.GoalMet}
	if s.CalorieGoal != nil && *s.CalorieGoal > 0 {
		goal := *s.CalorieGoal
		p.Goal = &goal
		p.Ratio = min(float64(s.TotalCalories)/float64(goal), 1)

		remaining := max(goal-s.TotalCalories, 0)
		if s.RemainingCalories != nil {
			remaining = *s.RemainingCalories
		}
		p.Remaining = &remaining
		p.GoalMet = p.GoalMet || s.TotalCalories >= goal
	}
	return p
}

// Headline is the flame line: calories and meal count.
func (p Progress) Headline() string {
	meals := "refeições"
	if p.Meals == 1 {
		meals = "refeição"
	}
	return fmt.Sprintf("🔥 %d kcal · %d %s", p.Calories, p.Meals, meals)
}

// Bar renders a width-cell bar, or "" when there is no goal.
func (p Progress) Bar(width int) string {
	if p.Goal == nil || width <= 0 {
		return ""
	}
	filled := int(p.Ratio*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// Status is the remaining-calories or goal-met message.
func (p Progress) Status() string {
	switch {
	case p.Goal == nil:
		return ""
	case p.GoalMet:
		return fmt.Sprintf("Meta de %d kcal atingida!", *p.Goal)
	default:
		return fmt.Sprintf("Faltam %d kcal para a meta de %d kcal", *p.Remaining, *p.Goal)
	}
}
