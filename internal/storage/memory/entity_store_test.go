package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

func token(mint, name string) *domain.Token {
	return &domain.Token{
		Mint:      mint,
		Name:      name,
		Symbol:    "SYM",
		Decimals:  domain.DefaultTokenDecimals,
		Status:    domain.TokenStatusActive,
		CreatedAt: 1704067200000,
	}
}

func TestEntityStore_InsertAndGet(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []*domain.Token{token("m1", "One")}))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "One", got.Name)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntityStore_InsertDuplicateIsAtomic(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []*domain.Token{token("m1", "One")}))

	err := store.Insert(ctx, []*domain.Token{token("m2", "Two"), token("m1", "Again")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Equal(t, 1, store.Len(), "no record of a failed insert is applied")

	err = store.Insert(ctx, []*domain.Token{token("m3", "A"), token("m3", "B")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEntityStore_UpdateIgnoresMissing(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()
	store.Put(token("m1", "One"))

	require.NoError(t, store.Update(ctx, []*domain.Token{token("m1", "Renamed"), token("m2", "Ghost")}))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.Writes(OpUpdate))
}

func TestEntityStore_Upsert(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()
	store.Put(token("m1", "One"))

	require.NoError(t, store.Upsert(ctx, []*domain.Token{token("m1", "New"), token("m2", "Two")}))

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "New", all[0].Name)
	assert.Equal(t, "Two", all[1].Name)
}

func TestEntityStore_FindByIDs(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()
	store.Put(token("b", "B"))
	store.Put(token("a", "A"))

	got, err := store.FindByIDs(ctx, []string{"b", "missing", "a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Mint)
	assert.Equal(t, "b", got[1].Mint)
	assert.Equal(t, 1, store.Calls("find"))
}

func TestEntityStore_ReturnsCopies(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()

	rec := token("m1", "One")
	require.NoError(t, store.Insert(ctx, []*domain.Token{rec}))
	rec.Name = "mutated after insert"

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	got.Name = "mutated after get"

	again, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "One", again.Name)
}

func TestEntityStore_FailWrite(t *testing.T) {
	store := NewEntityStore[*domain.Token]()
	ctx := context.Background()
	boom := errors.New("boom")
	store.FailWrite = func(op string, records []*domain.Token) error {
		if op == OpUpsert && len(records) > 1 {
			return boom
		}
		return nil
	}

	err := store.Upsert(ctx, []*domain.Token{token("m1", "A"), token("m2", "B")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Upsert(ctx, []*domain.Token{token("m1", "A")}))
	assert.Equal(t, 2, store.Calls(OpUpsert))
	assert.Equal(t, 1, store.Writes(OpUpsert))
}

func TestEntityStore_ConcurrentAccess(t *testing.T) {
	store := NewEntityStore[*domain.Trade]()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.TradeID("sig", uint32(i))
			_ = store.Upsert(ctx, []*domain.Trade{{ID: id, Signature: "sig", Sequence: uint32(i)}})
			_, _ = store.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())
}

func TestProgressStore(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	_, err := store.GetLastProcessed(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastProcessed(ctx, &storage.Progress{Slot: 100}))
	require.NoError(t, store.SetLastProcessed(ctx, &storage.Progress{Slot: 50}))

	got, err := store.GetLastProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.Slot, "progress never moves backwards")

	assert.ErrorIs(t, store.SetLastProcessed(ctx, nil), storage.ErrInvalidInput)
}

func TestDefaultsStore(t *testing.T) {
	store := NewDefaultsStore()
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	d := domain.DefaultProtocolDefaults()
	d.FeeBasisPoints = 100
	require.NoError(t, store.Save(ctx, d))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}
