package memory

import (
	"context"
	"sync"

	"sitenav/internal/types"
)

// CacheStore is the in-process backend: suitable for tests and for single
// instance runs where losing the cache on restart is acceptable.
type CacheStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewCacheStore() *CacheStore {
	return &CacheStore{data: make(map[string][]byte)}
}

func (s *CacheStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *CacheStore) SetItem(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.mu.Lock()
	s.data[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *CacheStore) RemoveItem(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *CacheStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.data = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}
