package memory

import (
	"context"
	"sort"
	"sync"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// Write operations reported to hooks and counters.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpUpsert = "upsert"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
// Records are cloned on the way in and out.
type EntityStore[T domain.Entity[T]] struct {
	mu   sync.RWMutex
	data map[string]T

	// FailWrite, when set, is consulted before every write. A non-nil
	// result fails the whole call without applying any record.
	FailWrite func(op string, records []T) error

	writes map[string]int
	calls  map[string]int
}

// NewEntityStore creates an empty in-memory store.
func NewEntityStore[T domain.Entity[T]]() *EntityStore[T] {
	return &EntityStore[T]{
		data:   make(map[string]T),
		writes: make(map[string]int),
		calls:  make(map[string]int),
	}
}

// Get retrieves a record by id.
func (s *EntityStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	rec, ok := s.data[id]
	if !ok {
		return zero, storage.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindByIDs retrieves records for the given ids, ordered by id.
func (s *EntityStore[T]) FindByIDs(_ context.Context, ids []string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["find"]++

	seen := make(map[string]struct{}, len(ids))
	result := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if rec, ok := s.data[id]; ok {
			result = append(result, rec.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntityID() < result[j].EntityID() })
	return result, nil
}

// Insert adds new records atomically. Fails on any existing id.
func (s *EntityStore[T]) Insert(_ context.Context, records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpInsert, records); err != nil {
		return err
	}
	batch := make(map[string]struct{}, len(records))
	for _, rec := range records {
		id := rec.EntityID()
		if _, exists := s.data[id]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := batch[id]; dup {
			return storage.ErrDuplicateKey
		}
		batch[id] = struct{}{}
	}
	s.apply(OpInsert, records, true)
	return nil
}

// Update overwrites records whose id already exists.
func (s *EntityStore[T]) Update(_ context.Context, records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpUpdate, records); err != nil {
		return err
	}
	s.apply(OpUpdate, records, false)
	return nil
}

// Upsert inserts or overwrites records.
func (s *EntityStore[T]) Upsert(_ context.Context, records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpUpsert, records); err != nil {
		return err
	}
	s.apply(OpUpsert, records, true)
	return nil
}

func (s *EntityStore[T]) check(op string, records []T) error {
	s.calls[op]++
	if s.FailWrite != nil {
		return s.FailWrite(op, records)
	}
	return nil
}

func (s *EntityStore[T]) apply(op string, records []T, create bool) {
	for _, rec := range records {
		id := rec.EntityID()
		if _, exists := s.data[id]; !exists && !create {
			continue
		}
		s.data[id] = rec.Clone()
		s.writes[op]++
	}
}

// Put seeds a record directly, bypassing hooks and counters.
func (s *EntityStore[T]) Put(rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.EntityID()] = rec.Clone()
}

// All returns every record ordered by id.
func (s *EntityStore[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0, len(s.data))
	for _, rec := range s.data {
		result = append(result, rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EntityID() < result[j].EntityID() })
	return result
}

// Len returns the number of stored records.
func (s *EntityStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Writes returns how many records were applied by op.
func (s *EntityStore[T]) Writes(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[op]
}

// Calls returns how many times op ("find", insert, update, upsert) was invoked.
func (s *EntityStore[T]) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// Stores is a full set of in-memory entity stores.
type Stores struct {
	GlobalConfigs    *EntityStore[*domain.GlobalConfig]
	Tokens           *EntityStore[*domain.Token]
	BondingCurves    *EntityStore[*domain.BondingCurve]
	Trades           *EntityStore[*domain.Trade]
	TokenCreated     *EntityStore[*domain.TokenCreated]
	TokenCompleted   *EntityStore[*domain.TokenCompleted]
	WalletStats      *EntityStore[*domain.WalletStats]
	WalletTokenStats *EntityStore[*domain.WalletTokenStats]
}

// NewStores creates empty stores for every entity kind.
func NewStores() *Stores {
	return &Stores{
		GlobalConfigs:    NewEntityStore[*domain.GlobalConfig](),
		Tokens:           NewEntityStore[*domain.Token](),
		BondingCurves:    NewEntityStore[*domain.BondingCurve](),
		Trades:           NewEntityStore[*domain.Trade](),
		TokenCreated:     NewEntityStore[*domain.TokenCreated](),
		TokenCompleted:   NewEntityStore[*domain.TokenCompleted](),
		WalletStats:      NewEntityStore[*domain.WalletStats](),
		WalletTokenStats: NewEntityStore[*domain.WalletTokenStats](),
	}
}

// Storage returns the stores behind the storage interfaces.
func (s *Stores) Storage() storage.Stores {
	return storage.Stores{
		GlobalConfigs:    s.GlobalConfigs,
		Tokens:           s.Tokens,
		BondingCurves:    s.BondingCurves,
		Trades:           s.Trades,
		TokenCreated:     s.TokenCreated,
		TokenCompleted:   s.TokenCompleted,
		WalletStats:      s.WalletStats,
		WalletTokenStats: s.WalletTokenStats,
	}
}

// Compile-time interface checks.
var (
	_ storage.TokenStore            = (*EntityStore[*domain.Token])(nil)
	_ storage.WalletTokenStatsStore = (*EntityStore[*domain.WalletTokenStats])(nil)
)
