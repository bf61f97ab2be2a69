package nutrition

import (
	"strings"
	"time"
)

// DefaultTimeZone is the zone meal slots and calendar days are computed in.
const DefaultTimeZone = "America/Sao_Paulo"

// LoadLocation resolves name, falling back to a fixed UTC-3 zone when the
// tz database is unavailable.
func LoadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// MealSlot classifies t by wall-clock hour in loc.
func MealSlot(t time.Time, loc *time.Location) string {
	switch h := t.In(loc).Hour(); {
	case h >= 5 && h < 11:
		return SlotBreakfast
	case h >= 11 && h < 15:
		return SlotLunch
	case h >= 15 && h < 18:
		return SlotSnack
	case h >= 18 && h < 22:
		return SlotDinner
	default:
		return SlotLateSnack
	}
}

var mealNameAliases = map[string]string{
	"café da manhã":   SlotBreakfast,
	"cafe da manha":   SlotBreakfast,
	"café da manha":   SlotBreakfast,
	"cafe da manhã":   SlotBreakfast,
	"desjejum":        SlotBreakfast,
	"breakfast":       SlotBreakfast,
	"almoço":          SlotLunch,
	"almoco":          SlotLunch,
	"lunch":           SlotLunch,
	"lanche":          SlotSnack,
	"lanche da tarde": SlotSnack,
	"snack":           SlotSnack,
	"jantar":          SlotDinner,
	"janta":           SlotDinner,
	"dinner":          SlotDinner,
	"ceia":            SlotLateSnack,
	"late snack":      SlotLateSnack,
}

// NormalizeMealName maps a free-form category to one of the slots.
func NormalizeMealName(name string) (string, bool) {
	slot, ok := mealNameAliases[strings.ToLower(strings.TrimSpace(name))]
	return slot, ok
}
