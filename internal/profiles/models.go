package profiles

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	MinCalorieGoal = 800
	MaxCalorieGoal = 6000
)

// ProfileDTO is the body of GET and PATCH /v1/profile.
type ProfileDTO struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	CalorieGoal *int       `json:"calorie_goal"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UpdateProfileRequest is the body of PATCH /v1/profile. Absent fields are
// left alone; "calorie_goal": null clears the goal.
type UpdateProfileRequest struct {
	DisplayName *string     `json:"display_name" validate:"omitempty,min=1,max=80"`
	CalorieGoal OptionalInt `json:"calorie_goal"`
}

// OptionalInt tells an absent field apart from an explicit null.
type OptionalInt struct {
	Set   bool
	Value *int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
