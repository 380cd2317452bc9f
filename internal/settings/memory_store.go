package settings

import (
	"context"
	"sync"

	"github.com/matthewbaird/parentref/internal/types"
)

// MemoryStore implements Store with an in-process map.
// Intended for tests and single-node demos.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]types.SelectionSettings
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]types.SelectionSettings)}
}

func (s *MemoryStore) Get(_ context.Context, token string) (types.SelectionSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[token]
	if !ok {
		return types.SelectionSettings{}, ErrNotFound
	}
	return clone(v), nil
}

func (s *MemoryStore) Put(_ context.Context, token string, v types.SelectionSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = clone(v)
	return nil
}

// Delete removes the settings stored under token.
func (s *MemoryStore) Delete(_ context.Context, token string) {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
}

func clone(v types.SelectionSettings) types.SelectionSettings {
	v.ParentFieldNames = append([]string(nil), v.ParentFieldNames...)
	v.TargetBundles = append([]string(nil), v.TargetBundles...)
	return v
}
