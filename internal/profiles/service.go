package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orbitha/orbitha/internal/storage"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("profile not found")
	ErrEmptyName          = errors.New("display_name cannot be empty")
	ErrInvalidCalorieGoal = fmt.Errorf("calorie_goal must be between %d and %d", MinCalorieGoal, MaxCalorieGoal)
	ErrNothingToUpdate    = errors.New("display_name or calorie_goal is required")
)

// Service reads and edits the caller's own profile row.
type Service struct {
	profiles storage.ProfilesStorage
	now      func() time.Time
}

func NewService(profiles storage.ProfilesStorage) *Service {
	return &Service{profiles: profiles, now: time.Now}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*ProfileDTO, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	dto := toDTO(*p)
	return &dto, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*ProfileDTO, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if req.DisplayName == nil && !req.CalorieGoal.Set {
		return nil, ErrNothingToUpdate
	}

	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, ErrEmptyName
		}
		p.DisplayName = name
	}
	if req.CalorieGoal.Set {
		if g := req.CalorieGoal.Value; g != nil && (*g < MinCalorieGoal || *g > MaxCalorieGoal) {
			return nil, ErrInvalidCalorieGoal
		}
		p.CalorieGoal = req.CalorieGoal.Value
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	dto := toDTO(*p)
	return &dto, nil
}

func toDTO(p storage.Profile) ProfileDTO {
	return ProfileDTO{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		CalorieGoal: p.CalorieGoal,
		LastSeenAt:  p.LastSeenAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
