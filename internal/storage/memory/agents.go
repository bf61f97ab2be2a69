package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type AgentsMemoryStorage struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]storage.Agent
}

func NewAgentsMemoryStorage() *AgentsMemoryStorage {
	return &AgentsMemoryStorage{agents: make(map[uuid.UUID]storage.Agent)}
}

func (s *AgentsMemoryStorage) GetAgent(ctx context.Context, id uuid.UUID) (*storage.Agent, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (s *AgentsMemoryStorage) GetAgentBySlug(ctx context.Context, slug string) (*storage.Agent, error) {
	_ = ctx

	slug = strings.TrimSpace(slug)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.agents {
		if a.Slug == slug {
			return &a, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *AgentsMemoryStorage) UpsertAgent(ctx context.Context, agent *storage.Agent) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.agents[agent.ID] = *agent
	return nil
}
