package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/orbitha/orbitha/internal/storage"
)

type ProfilesMemoryStorage struct {
	mu       sync.RWMutex
	profiles map[string]storage.Profile
}

func NewProfilesMemoryStorage() *ProfilesMemoryStorage {
	return &ProfilesMemoryStorage{profiles: make(map[string]storage.Profile)}
}

func (s *ProfilesMemoryStorage) GetProfile(ctx context.Context, userID string) (*storage.Profile, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[strings.TrimSpace(userID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *ProfilesMemoryStorage) UpsertProfile(ctx context.Context, profile *storage.Profile) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	userID := strings.TrimSpace(profile.UserID)
	existing, ok := s.profiles[userID]
	if ok {
		existing.DisplayName = profile.DisplayName
		existing.CalorieGoal = profile.CalorieGoal
		existing.UpdatedAt = now
		s.profiles[userID] = existing
		*profile = existing
		return nil
	}

	profile.UserID = userID
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.profiles[userID] = *profile
	return nil
}

func (s *ProfilesMemoryStorage) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[strings.TrimSpace(userID)]
	if !ok {
		return storage.ErrNotFound
	}
	at = at.UTC()
	p.LastSeenAt = &at
	s.profiles[p.UserID] = p
	return nil
}
