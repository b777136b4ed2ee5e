package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
	"bonding-curve-indexer/internal/storage/memory"
)

type failingDefaults struct{ err error }

func (f failingDefaults) Load(context.Context) (domain.ProtocolDefaults, error) {
	return domain.ProtocolDefaults{}, f.err
}

func (f failingDefaults) Save(context.Context, domain.ProtocolDefaults) error { return f.err }

func seededConfigs(t *testing.T, d domain.ProtocolDefaults, slot uint64) *memory.EntityStore[*domain.GlobalConfig] {
	t.Helper()
	stores := memory.NewStores()
	g := &domain.GlobalConfig{ID: domain.GlobalConfigID, Initialized: true, UpdatedSlot: slot}
	g.SetProtocolDefaults(d, slot)
	require.NoError(t, stores.GlobalConfigs.Upsert(context.Background(), []*domain.GlobalConfig{g}))
	return stores.GlobalConfigs
}

func TestGlobalConfigDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("no row", func(t *testing.T) {
		_, err := storage.NewGlobalConfigDefaults(memory.NewStores().GlobalConfigs).Load(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("row without setParams", func(t *testing.T) {
		stores := memory.NewStores()
		g := &domain.GlobalConfig{ID: domain.GlobalConfigID, Initialized: true, UpdatedSlot: 5}
		require.NoError(t, stores.GlobalConfigs.Upsert(ctx, []*domain.GlobalConfig{g}))

		_, err := storage.NewGlobalConfigDefaults(stores.GlobalConfigs).Load(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("seed values from setParams", func(t *testing.T) {
		want := domain.DefaultProtocolDefaults()
		want.InitialVirtualSolReserves = 6_000
		want.UpdatedSlot = 40

		got, err := storage.NewGlobalConfigDefaults(seededConfigs(t, want, 40)).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestLayeredDefaults(t *testing.T) {
	ctx := context.Background()
	older := domain.DefaultProtocolDefaults()
	older.UpdatedSlot = 10
	newer := domain.DefaultProtocolDefaults()
	newer.FeeBasisPoints = 95
	newer.UpdatedSlot = 20
	unavailable := failingDefaults{err: storage.ErrStorageUnavailable}

	t.Run("empty cache reads the source", func(t *testing.T) {
		layered := storage.NewLayeredDefaults(memory.NewDefaultsStore(), storage.NewGlobalConfigDefaults(seededConfigs(t, newer, 20)))
		got, err := layered.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, newer, got)
	})

	t.Run("newer value wins", func(t *testing.T) {
		cache := memory.NewDefaultsStore()
		require.NoError(t, cache.Save(ctx, older))
		layered := storage.NewLayeredDefaults(cache, storage.NewGlobalConfigDefaults(seededConfigs(t, newer, 20)))
		got, err := layered.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), got.UpdatedSlot)

		require.NoError(t, cache.Save(ctx, domain.ProtocolDefaults{UpdatedSlot: 30}))
		got, err = layered.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(30), got.UpdatedSlot)
	})

	t.Run("cache outage falls back to source", func(t *testing.T) {
		layered := storage.NewLayeredDefaults(unavailable, storage.NewGlobalConfigDefaults(seededConfigs(t, newer, 20)))
		got, err := layered.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, newer, got)
	})

	t.Run("source outage keeps cached value", func(t *testing.T) {
		cache := memory.NewDefaultsStore()
		require.NoError(t, cache.Save(ctx, older))
		got, err := storage.NewLayeredDefaults(cache, unavailable).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, older, got)
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		_, err := storage.NewLayeredDefaults(memory.NewDefaultsStore(), storage.NewGlobalConfigDefaults(memory.NewStores().GlobalConfigs)).Load(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("both failing reports the cache error", func(t *testing.T) {
		_, err := storage.NewLayeredDefaults(failingDefaults{err: errors.New("redis down")}, unavailable).Load(ctx)
		assert.EqualError(t, err, "redis down")
	})

	t.Run("save goes to cache", func(t *testing.T) {
		cache := memory.NewDefaultsStore()
		require.NoError(t, storage.NewLayeredDefaults(cache, unavailable).Save(ctx, newer))
		got, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, newer, got)
	})
}
