package db

import (
	"context"
	"sync"
)

// CacheStore holds raw API response bodies keyed by request fingerprint.
// A missing entry is reported with ok == false, never with an error.
type CacheStore interface {
	Get(ctx context.Context, key string) (body []byte, ok bool, err error)
	Set(ctx context.Context, key string, body []byte) error
}

// MemoryStore is a process-lifetime CacheStore. Entries are never evicted.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-process cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.entries[key]
	return body, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), body...)
	return nil
}

// size returns the number of cached responses.
func (s *MemoryStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
