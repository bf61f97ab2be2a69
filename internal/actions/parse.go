package actions

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the outcome of Parse.
type Kind int

const (
	KindNone Kind = iota
	KindMeal
	KindUnsupported
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindMeal:
		return "meal"
	case KindUnsupported:
		return "unsupported"
	case KindMalformed:
		return "malformed"
	default:
		return "none"
	}
}

const (
	ActionSaveMeal    = "save_meal"
	ActionSaveProfile = "save_profile"
	ActionSaveWeight  = "save_weight"
)

type MealItem struct {
	Name     string
	Quantity string
	Calories int
}

// Meal is a validated save_meal payload. MealName may be empty.
type Meal struct {
	MealName      string
	Items         []MealItem
	TotalCalories int
}

// Result is the tagged outcome of scanning a reply. Meal is set only for
// KindMeal; Reason only for KindMalformed.
type Result struct {
	Kind   Kind
	Action string
	Meal   *Meal
	Reason string
}

// maxCalories bounds totals and item values. Anything above it is treated as
// a model error rather than food.
const maxCalories = 100000

var blockBodyRe = regexp.MustCompile("(?is)```json(.*?)(?:```|$)")

// Parse inspects the blocks in order. The first valid save_meal wins; failing
// that the first recognised non-meal action, then the first malformed block.
func Parse(text string) Result {
	var fallback *Result

	for _, m := range blockBodyRe.FindAllStringSubmatch(text, -1) {
		r := parseBlock(m[1])
		if r.Kind == KindMeal {
			return r
		}
		if fallback == nil || (fallback.Kind == KindMalformed && r.Kind == KindUnsupported) {
			fallback = &r
		}
	}

	if fallback != nil {
		return *fallback
	}
	return Result{Kind: KindNone}
}

func parseBlock(body string) Result {
	body = strings.TrimSpace(body)
	if body == "" {
		return malformed("", "empty block")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return malformed("", fmt.Sprintf("invalid json: %v", err))
	}

	action, _ := payload["action"].(string)
	action = strings.TrimSpace(action)
	switch action {
	case ActionSaveMeal:
		return parseMeal(payload)
	case ActionSaveProfile, ActionSaveWeight:
		return Result{Kind: KindUnsupported, Action: action}
	case "":
		return malformed("", "missing action")
	default:
		return malformed(action, "unknown action")
	}
}

func parseMeal(payload map[string]any) Result {
	rawItems, ok := payload["items"].([]any)
	if !ok || len(rawItems) == 0 {
		return malformed(ActionSaveMeal, "items must be a non-empty list")
	}

	total, ok := payload["total_calories"].(float64)
	if !ok {
		return malformed(ActionSaveMeal, "total_calories must be a number")
	}
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) || total > maxCalories {
		return malformed(ActionSaveMeal, "total_calories out of range")
	}

	items := make([]MealItem, 0, len(rawItems))
	for i, raw := range rawItems {
		obj, ok := raw.(map[string]any)
		if !ok {
			return malformed(ActionSaveMeal, fmt.Sprintf("item %d is not an object", i))
		}
		name, _ := obj["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return malformed(ActionSaveMeal, fmt.Sprintf("item %d has no name", i))
		}
		calories, ok := roundCalories(obj["calories"])
		if !ok {
			return malformed(ActionSaveMeal, fmt.Sprintf("item %d calories out of range", i))
		}
		items = append(items, MealItem{
			Name:     name,
			Quantity: quantityString(obj["quantity"]),
			Calories: calories,
		})
	}

	mealName, _ := payload["meal_name"].(string)
	return Result{
		Kind:   KindMeal,
		Action: ActionSaveMeal,
		Meal: &Meal{
			MealName:      strings.TrimSpace(mealName),
			Items:         items,
			TotalCalories: int(math.Round(total)),
		},
	}
}

func quantityString(v any) string {
	switch q := v.(type) {
	case string:
		return strings.TrimSpace(q)
	case float64:
		return strconv.FormatFloat(q, 'f', -1, 64)
	default:
		return ""
	}
}

// roundCalories treats a missing or unparseable value as zero. It reports
// false only for numbers that cannot be real calorie counts.
func roundCalories(v any) (int, bool) {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0, true
		}
		f = parsed
	default:
		return 0, true
	}
	if math.IsNaN(f) || f < 0 || f > maxCalories {
		return 0, false
	}
	return int(math.Round(f)), true
}

func malformed(action, reason string) Result {
	return Result{Kind: KindMalformed, Action: action, Reason: reason}
}
