package memory

import (
	"context"
	"sync"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// DefaultsStore is an in-memory implementation of storage.DefaultsStore.
type DefaultsStore struct {
	mu       sync.RWMutex
	defaults *domain.ProtocolDefaults
}

// NewDefaultsStore creates an empty defaults store.
func NewDefaultsStore() *DefaultsStore {
	return &DefaultsStore{}
}

var _ storage.DefaultsStore = (*DefaultsStore)(nil)

// Load returns the saved defaults or ErrNotFound.
func (s *DefaultsStore) Load(_ context.Context) (domain.ProtocolDefaults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.defaults == nil {
		return domain.ProtocolDefaults{}, storage.ErrNotFound
	}
	return *s.defaults, nil
}

// Save replaces the saved defaults.
func (s *DefaultsStore) Save(_ context.Context, d domain.ProtocolDefaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = &d
	return nil
}
