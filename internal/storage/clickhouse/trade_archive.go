package clickhouse

import (
	"context"
	"fmt"
	"time"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// Lifecycle kinds stored in token_lifecycle_archive.kind.
const (
	LifecycleCreated   = "created"
	LifecycleCompleted = "completed"
)

// TradeArchive implements storage.TradeArchive using ClickHouse.
// Tables are ReplacingMergeTree, so re-archiving an id after a retried
// batch collapses on merge.
type TradeArchive struct {
	conn *Conn
}

// NewTradeArchive creates a new TradeArchive.
func NewTradeArchive(conn *Conn) *TradeArchive {
	return &TradeArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeArchive = (*TradeArchive)(nil)

// ArchiveTrades appends trades in one batch.
func (a *TradeArchive) ArchiveTrades(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO trades_archive (
			id, signature, seq_no, mint, bonding_curve, user_wallet, side,
			sol_amount, token_amount,
			virtual_sol_reserves, virtual_token_reserves,
			real_sol_reserves, real_token_reserves,
			slot, block_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.ID, t.Signature, t.Sequence, t.Mint, t.BondingCurve, t.User, t.Side(),
			t.SolAmount, t.TokenAmount,
			t.VirtualSolReserves, t.VirtualTokenReserves,
			t.RealSolReserves, t.RealTokenReserves,
			t.Slot, blockTime(t.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append trade %s: %w", t.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ArchiveLifecycle appends created and completed events in one batch.
func (a *TradeArchive) ArchiveLifecycle(ctx context.Context, created []*domain.TokenCreated, completed []*domain.TokenCompleted) error {
	if len(created) == 0 && len(completed) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO token_lifecycle_archive (
			id, kind, mint, bonding_curve, user_wallet,
			name, symbol, uri, signature, slot, block_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range created {
		err = batch.Append(
			e.ID, LifecycleCreated, e.Mint, e.BondingCurve, e.User,
			e.Name, e.Symbol, e.URI, e.Signature, e.Slot, blockTime(e.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append created %s: %w", e.ID, err)
		}
	}
	for _, e := range completed {
		err = batch.Append(
			e.ID, LifecycleCompleted, e.Mint, e.BondingCurve, e.User,
			"", "", "", e.Signature, e.Slot, blockTime(e.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append completed %s: %w", e.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func blockTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
