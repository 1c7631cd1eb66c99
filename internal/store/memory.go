package store

import (
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("no value stored for key")
)

// Store is a small key-value persistence layer for client state such as
// favorites and the alert de-dup map.
type Store interface {
	Get(key string, v any) error
	Set(key string, v any) error
	Delete(key string) error
}

// MemoryStore is a concurrency-safe in-memory Store. Values are held as
// encoded YAML nodes so callers never share memory with stored state.
type MemoryStore struct {
	mu sync.RWMutex

	// key: store key, value: encoded document
	data map[string]yaml.Node
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]yaml.Node)}
}

// Get decodes the value stored under key into v.
func (s *MemoryStore) Get(key string, v any) error {
	s.mu.RLock()
	n, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	if err := n.Decode(v); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// Set encodes v and stores it under key.
func (s *MemoryStore) Set(key string, v any) error {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = n
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func (s *MemoryStore) snapshot() map[string]yaml.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]yaml.Node, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
