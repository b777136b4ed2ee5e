package cache

import (
	"context"
	"fmt"
	"time"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// Entity kind names, also used as log and metric labels.
const (
	KindGlobalConfig     = "global_config"
	KindToken            = "token"
	KindBondingCurve     = "bonding_curve"
	KindTrade            = "trade"
	KindTokenCreated     = "token_created"
	KindTokenCompleted   = "token_completed"
	KindWalletStats      = "wallet_stats"
	KindWalletTokenStats = "wallet_token_stats"
)

// Set holds one cache per entity kind.
type Set struct {
	GlobalConfigs    *EntityCache[*domain.GlobalConfig]
	Tokens           *EntityCache[*domain.Token]
	BondingCurves    *EntityCache[*domain.BondingCurve]
	Trades           *EntityCache[*domain.Trade]
	TokenCreated     *EntityCache[*domain.TokenCreated]
	TokenCompleted   *EntityCache[*domain.TokenCompleted]
	WalletStats      *EntityCache[*domain.WalletStats]
	WalletTokenStats *EntityCache[*domain.WalletTokenStats]

	onFlush func(FlushReport, time.Duration)
}

// kindCache is the kind-independent surface used for ordered iteration.
type kindCache interface {
	Kind() string
	Reset()
	Len() int
	Flush(ctx context.Context) (FlushReport, error)
}

// NewSet creates caches for every kind over stores.
func NewSet(stores storage.Stores, opts Options) *Set {
	return &Set{
		GlobalConfigs:    NewEntityCache(KindGlobalConfig, stores.GlobalConfigs, opts),
		Tokens:           NewEntityCache(KindToken, stores.Tokens, opts),
		BondingCurves:    NewEntityCache(KindBondingCurve, stores.BondingCurves, opts),
		Trades:           NewEntityCache(KindTrade, stores.Trades, opts),
		TokenCreated:     NewEntityCache(KindTokenCreated, stores.TokenCreated, opts),
		TokenCompleted:   NewEntityCache(KindTokenCompleted, stores.TokenCompleted, opts),
		WalletStats:      NewEntityCache(KindWalletStats, stores.WalletStats, opts),
		WalletTokenStats: NewEntityCache(KindWalletTokenStats, stores.WalletTokenStats, opts),
		onFlush:          opts.OnFlush,
	}
}

// ordered returns the caches in flush order.
func (s *Set) ordered() []kindCache {
	return []kindCache{
		s.GlobalConfigs,
		s.Tokens,
		s.BondingCurves,
		s.Trades,
		s.TokenCreated,
		s.TokenCompleted,
		s.WalletStats,
		s.WalletTokenStats,
	}
}

// Reset clears every cache. Called at batch start.
func (s *Set) Reset() {
	for _, c := range s.ordered() {
		c.Reset()
	}
}

// Len returns the number of tracked records across all kinds.
func (s *Set) Len() int {
	n := 0
	for _, c := range s.ordered() {
		n += c.Len()
	}
	return n
}

// IDs lists entity ids to prefetch, per kind.
type IDs struct {
	Tokens           []string
	BondingCurves    []string
	WalletStats      []string
	WalletTokenStats []string
	GlobalConfig     bool
}

// Prefetch bulk-loads ids into pendingExisting. Returns records loaded.
func (s *Set) Prefetch(ctx context.Context, ids IDs) (int, error) {
	total := 0
	add := func(n int, err error) error {
		total += n
		return err
	}

	if ids.GlobalConfig {
		if err := add(s.GlobalConfigs.Prefetch(ctx, []string{domain.GlobalConfigID})); err != nil {
			return total, err
		}
	}
	if err := add(s.Tokens.Prefetch(ctx, ids.Tokens)); err != nil {
		return total, err
	}
	if err := add(s.BondingCurves.Prefetch(ctx, ids.BondingCurves)); err != nil {
		return total, err
	}
	if err := add(s.WalletStats.Prefetch(ctx, ids.WalletStats)); err != nil {
		return total, err
	}
	if err := add(s.WalletTokenStats.Prefetch(ctx, ids.WalletTokenStats)); err != nil {
		return total, err
	}
	return total, nil
}

// SetReport collects per-kind flush reports in flush order.
type SetReport struct {
	Kinds []FlushReport
}

// Written returns the total records persisted.
func (r *SetReport) Written() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Written()
	}
	return n
}

// Failed returns ids that could not be written, prefixed by kind.
func (r *SetReport) Failed() []string {
	var out []string
	for _, k := range r.Kinds {
		for _, id := range k.Failed {
			out = append(out, k.Kind+"/"+id)
		}
	}
	return out
}

// Flush writes every kind in the order GlobalConfig, Token, BondingCurve,
// Trade, TokenCreated, TokenCompleted, WalletStats, WalletTokenStats.
// The first fatal error stops the flush; later kinds are not written.
func (s *Set) Flush(ctx context.Context) (*SetReport, error) {
	report := &SetReport{}
	for _, c := range s.ordered() {
		start := time.Now()
		r, err := c.Flush(ctx)
		report.Kinds = append(report.Kinds, r)
		if s.onFlush != nil {
			s.onFlush(r, time.Since(start))
		}
		if err != nil {
			return report, fmt.Errorf("flush aborted at %s: %w", c.Kind(), err)
		}
	}
	return report, nil
}
