package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orbitha/orbitha/internal/storage"
)

type UsageMemoryStorage struct {
	mu   sync.Mutex
	logs []storage.UsageLog
}

func NewUsageMemoryStorage() *UsageMemoryStorage {
	return &UsageMemoryStorage{}
}

func (s *UsageMemoryStorage) InsertUsageLog(ctx context.Context, log *storage.UsageLog) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, *log)
	return nil
}

func (s *UsageMemoryStorage) All() []storage.UsageLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]storage.UsageLog(nil), s.logs...)
}
