package postgres

import (
	"github.com/jackc/pgx/v5"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// NewStores creates a PostgreSQL store for every entity kind.
func NewStores(pool *Pool) storage.Stores {
	return storage.Stores{
		GlobalConfigs:    NewGlobalConfigStore(pool),
		Tokens:           NewTokenStore(pool),
		BondingCurves:    NewBondingCurveStore(pool),
		Trades:           NewTradeStore(pool),
		TokenCreated:     NewTokenCreatedStore(pool),
		TokenCompleted:   NewTokenCompletedStore(pool),
		WalletStats:      NewWalletStatsStore(pool),
		WalletTokenStats: NewWalletTokenStatsStore(pool),
	}
}

// NewGlobalConfigStore stores the protocol singleton in global_config.
func NewGlobalConfigStore(pool *Pool) *EntityStore[*domain.GlobalConfig] {
	return newEntityStore(pool, table[*domain.GlobalConfig]{
		name: "global_config",
		columns: []string{
			"id", "fee_recipient", "fee_basis_points", "initialized",
			"updated_slot", "created_at", "updated_at",
			"initial_virtual_token_reserves", "initial_virtual_sol_reserves",
			"initial_real_token_reserves", "token_total_supply", "defaults_slot",
		},
		values: func(g *domain.GlobalConfig) []any {
			return []any{
				g.ID, g.FeeRecipient, numeric(g.FeeBasisPoints), g.Initialized,
				g.UpdatedSlot, g.CreatedAt, g.UpdatedAt,
				numeric(g.InitialVirtualTokenReserves), numeric(g.InitialVirtualSolReserves),
				numeric(g.InitialRealTokenReserves), numeric(g.TokenTotalSupply), g.DefaultsSlot,
			}
		},
		scan: func(row pgx.Row) (*domain.GlobalConfig, error) {
			var g domain.GlobalConfig
			err := row.Scan(
				&g.ID, &g.FeeRecipient, u64(&g.FeeBasisPoints), &g.Initialized,
				&g.UpdatedSlot, &g.CreatedAt, &g.UpdatedAt,
				u64(&g.InitialVirtualTokenReserves), u64(&g.InitialVirtualSolReserves),
				u64(&g.InitialRealTokenReserves), u64(&g.TokenTotalSupply), &g.DefaultsSlot,
			)
			return &g, err
		},
	})
}

// NewTokenStore stores tokens keyed by mint.
func NewTokenStore(pool *Pool) *EntityStore[*domain.Token] {
	return newEntityStore(pool, table[*domain.Token]{
		name: "tokens",
		columns: []string{
			"mint", "name", "symbol", "uri", "decimals", "creator", "status",
			"bonding_curve", "is_placeholder", "created_slot",
			"created_at", "updated_at", "completed_at",
		},
		values: func(t *domain.Token) []any {
			return []any{
				t.Mint, t.Name, t.Symbol, t.URI, int16(t.Decimals), t.Creator, string(t.Status),
				t.BondingCurve, t.IsPlaceholder, t.CreatedSlot,
				t.CreatedAt, t.UpdatedAt, t.CompletedAt,
			}
		},
		scan: func(row pgx.Row) (*domain.Token, error) {
			var (
				t        domain.Token
				decimals int16
				status   string
			)
			err := row.Scan(
				&t.Mint, &t.Name, &t.Symbol, &t.URI, &decimals, &t.Creator, &status,
				&t.BondingCurve, &t.IsPlaceholder, &t.CreatedSlot,
				&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
			)
			t.Decimals = uint8(decimals)
			t.Status = domain.TokenStatus(status)
			return &t, err
		},
	})
}

// NewBondingCurveStore stores curves keyed by PDA.
func NewBondingCurveStore(pool *Pool) *EntityStore[*domain.BondingCurve] {
	return newEntityStore(pool, table[*domain.BondingCurve]{
		name: "bonding_curves",
		columns: []string{
			"id", "token",
			"virtual_sol_reserves", "virtual_token_reserves",
			"real_sol_reserves", "real_token_reserves",
			"token_total_supply", "fee_basis_points",
			"complete", "last_trade_slot", "created_at", "updated_at",
		},
		values: func(b *domain.BondingCurve) []any {
			return []any{
				b.ID, b.Token,
				numeric(b.VirtualSolReserves), numeric(b.VirtualTokenReserves),
				numeric(b.RealSolReserves), numeric(b.RealTokenReserves),
				numeric(b.TokenTotalSupply), numeric(b.FeeBasisPoints),
				b.Complete, b.LastTradeSlot, b.CreatedAt, b.UpdatedAt,
			}
		},
		scan: func(row pgx.Row) (*domain.BondingCurve, error) {
			var b domain.BondingCurve
			err := row.Scan(
				&b.ID, &b.Token,
				u64(&b.VirtualSolReserves), u64(&b.VirtualTokenReserves),
				u64(&b.RealSolReserves), u64(&b.RealTokenReserves),
				u64(&b.TokenTotalSupply), u64(&b.FeeBasisPoints),
				&b.Complete, &b.LastTradeSlot, &b.CreatedAt, &b.UpdatedAt,
			)
			return &b, err
		},
	})
}

// NewTradeStore stores trades keyed by "{signature}-{sequence}".
func NewTradeStore(pool *Pool) *EntityStore[*domain.Trade] {
	return newEntityStore(pool, table[*domain.Trade]{
		name: "trades",
		columns: []string{
			"id", "signature", "seq_no", "mint", "bonding_curve", "user_wallet",
			"is_buy", "sol_amount", "token_amount",
			"virtual_sol_reserves", "virtual_token_reserves",
			"real_sol_reserves", "real_token_reserves",
			"slot", "block_time",
		},
		values: func(t *domain.Trade) []any {
			return []any{
				t.ID, t.Signature, int64(t.Sequence), t.Mint, t.BondingCurve, t.User,
				t.IsBuy, numeric(t.SolAmount), numeric(t.TokenAmount),
				numeric(t.VirtualSolReserves), numeric(t.VirtualTokenReserves),
				numeric(t.RealSolReserves), numeric(t.RealTokenReserves),
				t.Slot, t.Timestamp,
			}
		},
		scan: func(row pgx.Row) (*domain.Trade, error) {
			var (
				t   domain.Trade
				seq int64
			)
			err := row.Scan(
				&t.ID, &t.Signature, &seq, &t.Mint, &t.BondingCurve, &t.User,
				&t.IsBuy, u64(&t.SolAmount), u64(&t.TokenAmount),
				u64(&t.VirtualSolReserves), u64(&t.VirtualTokenReserves),
				u64(&t.RealSolReserves), u64(&t.RealTokenReserves),
				&t.Slot, &t.Timestamp,
			)
			t.Sequence = uint32(seq)
			return &t, err
		},
	})
}

// NewTokenCreatedStore stores create lifecycle events.
func NewTokenCreatedStore(pool *Pool) *EntityStore[*domain.TokenCreated] {
	return newEntityStore(pool, table[*domain.TokenCreated]{
		name: "token_created",
		columns: []string{
			"id", "mint", "bonding_curve", "user_wallet",
			"name", "symbol", "uri", "signature", "slot", "block_time",
		},
		values: func(e *domain.TokenCreated) []any {
			return []any{
				e.ID, e.Mint, e.BondingCurve, e.User,
				e.Name, e.Symbol, e.URI, e.Signature, e.Slot, e.Timestamp,
			}
		},
		scan: func(row pgx.Row) (*domain.TokenCreated, error) {
			var e domain.TokenCreated
			err := row.Scan(
				&e.ID, &e.Mint, &e.BondingCurve, &e.User,
				&e.Name, &e.Symbol, &e.URI, &e.Signature, &e.Slot, &e.Timestamp,
			)
			return &e, err
		},
	})
}

// NewTokenCompletedStore stores completion lifecycle events.
func NewTokenCompletedStore(pool *Pool) *EntityStore[*domain.TokenCompleted] {
	return newEntityStore(pool, table[*domain.TokenCompleted]{
		name: "token_completed",
		columns: []string{
			"id", "mint", "bonding_curve", "user_wallet", "signature", "slot", "block_time",
		},
		values: func(e *domain.TokenCompleted) []any {
			return []any{e.ID, e.Mint, e.BondingCurve, e.User, e.Signature, e.Slot, e.Timestamp}
		},
		scan: func(row pgx.Row) (*domain.TokenCompleted, error) {
			var e domain.TokenCompleted
			err := row.Scan(&e.ID, &e.Mint, &e.BondingCurve, &e.User, &e.Signature, &e.Slot, &e.Timestamp)
			return &e, err
		},
	})
}

var aggregateColumns = []string{
	"total_volume_sol", "realized_pnl_sol", "total_buy_sol", "total_sell_sol",
	"buy_count", "sell_count", "trade_count",
	"first_trade_at", "last_trade_at", "first_trade_sol", "last_trade_sol",
}

func aggregateValues(a *domain.TradeAggregates) []any {
	return []any{
		a.TotalVolumeSol, a.RealizedPnlSol, a.TotalBuySol, a.TotalSellSol,
		a.BuyCount, a.SellCount, a.TradeCount,
		a.FirstTradeAt, a.LastTradeAt, a.FirstTradeSol, a.LastTradeSol,
	}
}

func aggregateDest(a *domain.TradeAggregates) []any {
	return []any{
		&a.TotalVolumeSol, &a.RealizedPnlSol, &a.TotalBuySol, &a.TotalSellSol,
		&a.BuyCount, &a.SellCount, &a.TradeCount,
		&a.FirstTradeAt, &a.LastTradeAt, &a.FirstTradeSol, &a.LastTradeSol,
	}
}

// NewWalletStatsStore stores per-wallet aggregates.
func NewWalletStatsStore(pool *Pool) *EntityStore[*domain.WalletStats] {
	columns := append([]string{"wallet"}, aggregateColumns...)
	columns = append(columns, "tokens_traded", "successful_tokens", "updated_at")

	return newEntityStore(pool, table[*domain.WalletStats]{
		name:    "wallet_stats",
		columns: columns,
		values: func(w *domain.WalletStats) []any {
			args := append([]any{w.Wallet}, aggregateValues(&w.TradeAggregates)...)
			return append(args, w.TokensTraded, w.SuccessfulTokens, w.UpdatedAt)
		},
		scan: func(row pgx.Row) (*domain.WalletStats, error) {
			var w domain.WalletStats
			dest := append([]any{&w.Wallet}, aggregateDest(&w.TradeAggregates)...)
			dest = append(dest, &w.TokensTraded, &w.SuccessfulTokens, &w.UpdatedAt)
			err := row.Scan(dest...)
			return &w, err
		},
	})
}

// NewWalletTokenStatsStore stores per-(wallet, mint) aggregates.
func NewWalletTokenStatsStore(pool *Pool) *EntityStore[*domain.WalletTokenStats] {
	columns := append([]string{"id", "wallet", "mint"}, aggregateColumns...)
	columns = append(columns, "tokens_bought", "tokens_sold", "successful", "updated_at")

	return newEntityStore(pool, table[*domain.WalletTokenStats]{
		name:    "wallet_token_stats",
		columns: columns,
		values: func(w *domain.WalletTokenStats) []any {
			args := append([]any{w.ID, w.Wallet, w.Mint}, aggregateValues(&w.TradeAggregates)...)
			return append(args, numeric(w.TokensBought), numeric(w.TokensSold), w.Successful, w.UpdatedAt)
		},
		scan: func(row pgx.Row) (*domain.WalletTokenStats, error) {
			var w domain.WalletTokenStats
			dest := append([]any{&w.ID, &w.Wallet, &w.Mint}, aggregateDest(&w.TradeAggregates)...)
			dest = append(dest, u64(&w.TokensBought), u64(&w.TokensSold), &w.Successful, &w.UpdatedAt)
			err := row.Scan(dest...)
			return &w, err
		},
	})
}

// Compile-time interface checks.
var (
	_ storage.GlobalConfigStore     = (*EntityStore[*domain.GlobalConfig])(nil)
	_ storage.TokenStore            = (*EntityStore[*domain.Token])(nil)
	_ storage.BondingCurveStore     = (*EntityStore[*domain.BondingCurve])(nil)
	_ storage.TradeStore            = (*EntityStore[*domain.Trade])(nil)
	_ storage.TokenCreatedStore     = (*EntityStore[*domain.TokenCreated])(nil)
	_ storage.TokenCompletedStore   = (*EntityStore[*domain.TokenCompleted])(nil)
	_ storage.WalletStatsStore      = (*EntityStore[*domain.WalletStats])(nil)
	_ storage.WalletTokenStatsStore = (*EntityStore[*domain.WalletTokenStats])(nil)
)
