package storage

import (
	"context"

	"bonding-curve-indexer/internal/domain"
)

// EntityStore provides durable access to one entity kind keyed by EntityID.
type EntityStore[T domain.Entity[T]] interface {
	// Get retrieves a record by id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (T, error)

	// FindByIDs retrieves all records whose id is in ids. Missing ids are omitted.
	FindByIDs(ctx context.Context, ids []string) ([]T, error)

	// Insert adds new records. Returns ErrDuplicateKey if any id exists.
	Insert(ctx context.Context, records []T) error

	// Update overwrites existing records. Ids that do not exist are ignored.
	Update(ctx context.Context, records []T) error

	// Upsert inserts records, overwriting any that already exist.
	Upsert(ctx context.Context, records []T) error
}

// Per-kind store aliases used for wiring.
type (
	GlobalConfigStore     = EntityStore[*domain.GlobalConfig]
	TokenStore            = EntityStore[*domain.Token]
	BondingCurveStore     = EntityStore[*domain.BondingCurve]
	TradeStore            = EntityStore[*domain.Trade]
	TokenCreatedStore     = EntityStore[*domain.TokenCreated]
	TokenCompletedStore   = EntityStore[*domain.TokenCompleted]
	WalletStatsStore      = EntityStore[*domain.WalletStats]
	WalletTokenStatsStore = EntityStore[*domain.WalletTokenStats]
)

// Stores groups one store per entity kind.
type Stores struct {
	GlobalConfigs    GlobalConfigStore
	Tokens           TokenStore
	BondingCurves    BondingCurveStore
	Trades           TradeStore
	TokenCreated     TokenCreatedStore
	TokenCompleted   TokenCompletedStore
	WalletStats      WalletStatsStore
	WalletTokenStats WalletTokenStatsStore
}

// Progress is the last slot whose batch was fully flushed.
type Progress struct {
	Slot      uint64
	UpdatedAt int64 // Unix timestamp in milliseconds
}

// ProgressStore persists indexing progress so a restart resumes after the
// last flushed slot without reprocessing.
type ProgressStore interface {
	// GetLastProcessed returns the saved progress.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context) (*Progress, error)

	// SetLastProcessed saves progress. Lower slots than the stored one are ignored.
	SetLastProcessed(ctx context.Context, progress *Progress) error
}

// DefaultsStore persists protocol defaults across batches and restarts.
type DefaultsStore interface {
	// Load returns the saved defaults. Returns ErrNotFound if none saved.
	Load(ctx context.Context) (domain.ProtocolDefaults, error)

	// Save replaces the saved defaults.
	Save(ctx context.Context, d domain.ProtocolDefaults) error
}

// TradeArchive receives append-only copies of flushed trades and lifecycle events.
type TradeArchive interface {
	// ArchiveTrades appends trades. Re-archiving the same id must be harmless.
	ArchiveTrades(ctx context.Context, trades []*domain.Trade) error

	// ArchiveLifecycle appends token created/completed events.
	ArchiveLifecycle(ctx context.Context, created []*domain.TokenCreated, completed []*domain.TokenCompleted) error
}
