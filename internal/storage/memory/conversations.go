package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type ConversationsMemoryStorage struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]storage.Conversation
}

func NewConversationsMemoryStorage() *ConversationsMemoryStorage {
	return &ConversationsMemoryStorage{conversations: make(map[uuid.UUID]storage.Conversation)}
}

func (s *ConversationsMemoryStorage) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	conv.UserID = strings.TrimSpace(conv.UserID)
	s.conversations[conv.ID] = *conv
	return nil
}

func (s *ConversationsMemoryStorage) GetConversation(ctx context.Context, userID string, id uuid.UUID) (*storage.Conversation, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != strings.TrimSpace(userID) {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (s *ConversationsMemoryStorage) ListConversations(ctx context.Context, userID string, agentID uuid.UUID) ([]storage.Conversation, error) {
	_ = ctx

	userID = strings.TrimSpace(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID && c.AgentID == agentID {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *ConversationsMemoryStorage) TouchConversation(ctx context.Context, userID string, id uuid.UUID, at time.Time) error {
	return s.update(userID, id, func(c *storage.Conversation) {
		c.UpdatedAt = at.UTC()
	})
}

func (s *ConversationsMemoryStorage) UpdateConversationTitle(ctx context.Context, userID string, id uuid.UUID, title string, at time.Time) error {
	return s.update(userID, id, func(c *storage.Conversation) {
		c.Title = &title
		c.UpdatedAt = at.UTC()
	})
}

func (s *ConversationsMemoryStorage) UpdateConversationStyle(ctx context.Context, userID string, id uuid.UUID, style string, at time.Time) error {
	return s.update(userID, id, func(c *storage.Conversation) {
		c.Style = style
		c.UpdatedAt = at.UTC()
	})
}

func (s *ConversationsMemoryStorage) DeleteConversation(ctx context.Context, userID string, id uuid.UUID) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != strings.TrimSpace(userID) {
		return storage.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func (s *ConversationsMemoryStorage) update(userID string, id uuid.UUID, apply func(c *storage.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.UserID != strings.TrimSpace(userID) {
		return storage.ErrNotFound
	}
	apply(&c)
	s.conversations[id] = c
	return nil
}
