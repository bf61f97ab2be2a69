package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

// MessagesMemoryStorage keeps messages in insertion order, which is also creation order.
type MessagesMemoryStorage struct {
	mu       sync.RWMutex
	messages []storage.Message
}

func NewMessagesMemoryStorage() *MessagesMemoryStorage {
	return &MessagesMemoryStorage{
		messages: make([]storage.Message, 0),
	}
}

func (s *MessagesMemoryStorage) InsertMessage(ctx context.Context, msg *storage.Message) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.Role = strings.TrimSpace(msg.Role)

	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MessagesMemoryStorage) ListMessages(ctx context.Context, userID string, conversationID uuid.UUID) ([]storage.Message, error) {
	_ = ctx

	userID = strings.TrimSpace(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]storage.Message, 0)
	for _, msg := range s.messages {
		if msg.UserID == userID && msg.ConversationID == conversationID {
			filtered = append(filtered, msg)
		}
	}
	return filtered, nil
}

func (s *MessagesMemoryStorage) ListRecentMessages(ctx context.Context, userID string, conversationID uuid.UUID, limit int, excludeID uuid.UUID) ([]storage.Message, error) {
	if limit <= 0 {
		return []storage.Message{}, nil
	}

	all, err := s.ListMessages(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	filtered := make([]storage.Message, 0, len(all))
	for _, msg := range all {
		if msg.ID == excludeID {
			continue
		}
		filtered = append(filtered, msg)
	}

	if len(filtered) <= limit {
		return filtered, nil
	}
	return filtered[len(filtered)-limit:], nil
}

func (s *MessagesMemoryStorage) DeleteConversationMessages(ctx context.Context, userID string, conversationID uuid.UUID) error {
	_ = ctx

	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.UserID == userID && msg.ConversationID == conversationID {
			continue
		}
		kept = append(kept, msg)
	}
	s.messages = kept
	return nil
}
