package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := New(ctx, ClientConfig{Addr: "localhost:6379", DB: 1})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestDefaultsStore_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewDefaultsStore(client, "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	d := domain.DefaultProtocolDefaults()
	d.FeeRecipient = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	d.FeeBasisPoints = 95
	d.UpdatedSlot = 1234
	require.NoError(t, store.Save(ctx, d))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDefaultsStore_CorruptField(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewDefaultsStore(client, "test:defaults")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.DefaultProtocolDefaults()))
	require.NoError(t, client.HSet(ctx, "test:defaults", fieldFeeBasisPoints, "not-a-number").Err())

	_, err = store.Load(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestNewDefaultsStore_NilClient(t *testing.T) {
	_, err := NewDefaultsStore(nil, "")
	assert.Error(t, err)
}
