package blob

import (
	"context"
	"encoding/base64"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory. PresignGet returns a data URL,
// so clients can render photos without an object store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) PutObject(_ context.Context, key string, data []byte, contentType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return int64(len(data)), nil
}

func (s *MemoryStore) GetObject(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return "", ErrObjectNotFound
	}
	return "data:" + obj.contentType + ";base64," + base64.StdEncoding.EncodeToString(obj.data), nil
}

func (s *MemoryStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}
