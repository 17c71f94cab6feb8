package storage

import (
	"context"
	"sync"
)

// inMemory implements Store using an in-memory map.
type inMemory struct {
	mu      sync.RWMutex
	entries map[Key][]byte
}

// NewInMemoryStore creates a new instance of Store that lives as long as the process.
func NewInMemoryStore() Store {
	return &inMemory{
		entries: make(map[Key][]byte),
	}
}

// Get retrieves a copy of the value stored under key.
func (s *inMemory) Get(_ context.Context, key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value under key.
func (s *inMemory) Put(_ context.Context, key Key, value []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the value stored under key.
func (s *inMemory) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *inMemory) Close() error {
	return nil
}
