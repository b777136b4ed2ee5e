package storage

import (
	"context"
	"errors"
	"fmt"

	"bonding-curve-indexer/internal/domain"
)

// GlobalConfigDefaults derives protocol defaults from the stored global
// config row, which setParams updates in the same flush as every other
// record of its batch.
type GlobalConfigDefaults struct {
	configs GlobalConfigStore
}

// NewGlobalConfigDefaults creates a DefaultsStore reading from configs.
func NewGlobalConfigDefaults(configs GlobalConfigStore) *GlobalConfigDefaults {
	return &GlobalConfigDefaults{configs: configs}
}

var _ DefaultsStore = (*GlobalConfigDefaults)(nil)

// Load returns the defaults of the last indexed setParams.
// Returns ErrNotFound when none has been indexed.
func (s *GlobalConfigDefaults) Load(ctx context.Context) (domain.ProtocolDefaults, error) {
	g, err := s.configs.Get(ctx, domain.GlobalConfigID)
	if errors.Is(err, ErrNotFound) {
		return domain.ProtocolDefaults{}, ErrNotFound
	}
	if err != nil {
		return domain.ProtocolDefaults{}, fmt.Errorf("load global config: %w", err)
	}
	d, ok := g.ProtocolDefaults()
	if !ok {
		return domain.ProtocolDefaults{}, ErrNotFound
	}
	return d, nil
}

// Save is a no-op. The values were flushed with the global config row.
func (s *GlobalConfigDefaults) Save(context.Context, domain.ProtocolDefaults) error {
	return nil
}

// LayeredDefaults reads protocol defaults from a warm cache and a durable
// source and returns the more recent value. Saves go to the cache only.
type LayeredDefaults struct {
	cache  DefaultsStore
	source DefaultsStore
}

// NewLayeredDefaults layers cache over source.
func NewLayeredDefaults(cache, source DefaultsStore) *LayeredDefaults {
	return &LayeredDefaults{cache: cache, source: source}
}

var _ DefaultsStore = (*LayeredDefaults)(nil)

// Load returns the value with the higher UpdatedSlot. A cache failure is
// tolerated when the source answers.
func (s *LayeredDefaults) Load(ctx context.Context) (domain.ProtocolDefaults, error) {
	cached, cacheErr := s.cache.Load(ctx)
	stored, sourceErr := s.source.Load(ctx)

	if cacheErr == nil && sourceErr == nil {
		if stored.UpdatedSlot > cached.UpdatedSlot {
			return stored, nil
		}
		return cached, nil
	}
	if cacheErr == nil {
		return cached, nil
	}
	if sourceErr == nil {
		return stored, nil
	}
	if errors.Is(cacheErr, ErrNotFound) {
		return domain.ProtocolDefaults{}, sourceErr
	}
	return domain.ProtocolDefaults{}, cacheErr
}

// Save writes d to the cache.
func (s *LayeredDefaults) Save(ctx context.Context, d domain.ProtocolDefaults) error {
	return s.cache.Save(ctx, d)
}
