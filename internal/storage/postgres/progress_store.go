package postgres

import (
	"context"

	"bonding-curve-indexer/internal/storage"
)

// ProgressStore is a PostgreSQL implementation of storage.ProgressStore
// backed by the single-row indexer_progress table.
type ProgressStore struct {
	pool *Pool
}

// NewProgressStore creates a new PostgreSQL progress store.
func NewProgressStore(pool *Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

var _ storage.ProgressStore = (*ProgressStore)(nil)

// GetLastProcessed returns the last flushed slot.
func (s *ProgressStore) GetLastProcessed(ctx context.Context) (*storage.Progress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slot, updated_at
		FROM indexer_progress
		WHERE id = 1
	`)

	var progress storage.Progress
	if err := row.Scan(&progress.Slot, &progress.UpdatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, classifyError("get progress", err)
	}
	return &progress, nil
}

// SetLastProcessed saves the last flushed slot. Never moves backwards.
func (s *ProgressStore) SetLastProcessed(ctx context.Context, progress *storage.Progress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_progress (id, slot, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    updated_at = EXCLUDED.updated_at
		WHERE indexer_progress.slot <= EXCLUDED.slot
	`, progress.Slot, progress.UpdatedAt)

	return classifyError("set progress", err)
}
