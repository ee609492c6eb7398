package cache

import "sync"

// Store is a mutex-guarded keyed cache. Writes to one key never touch
// unrelated keys; InvalidateAll is the only coarse operation. Constructed
// once per process and passed to the components that need it, never a
// package-level singleton.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

func NewStore[V any]() *Store[V] {
	return &Store[V]{entries: make(map[string]V)}
}

func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *Store[V]) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]V)
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
