package domain

import "github.com/shopspring/decimal"

// TradeAggregates are the running totals shared by wallet and wallet-token stats.
// SOL values are whole SOL, not lamports.
type TradeAggregates struct {
	TotalVolumeSol decimal.Decimal
	RealizedPnlSol decimal.Decimal // -buy notional, +sell notional
	TotalBuySol    decimal.Decimal
	TotalSellSol   decimal.Decimal
	BuyCount       int64
	SellCount      int64
	TradeCount     int64
	FirstTradeAt   int64 // Unix timestamp in milliseconds
	LastTradeAt    int64 // Unix timestamp in milliseconds
	FirstTradeSol  decimal.Decimal
	LastTradeSol   decimal.Decimal
}

// Apply folds one trade into the aggregates.
func (a *TradeAggregates) Apply(isBuy bool, sol decimal.Decimal, timestamp int64) {
	a.TotalVolumeSol = a.TotalVolumeSol.Add(sol)
	if isBuy {
		a.RealizedPnlSol = a.RealizedPnlSol.Sub(sol)
		a.TotalBuySol = a.TotalBuySol.Add(sol)
		a.BuyCount++
	} else {
		a.RealizedPnlSol = a.RealizedPnlSol.Add(sol)
		a.TotalSellSol = a.TotalSellSol.Add(sol)
		a.SellCount++
	}
	if a.TradeCount == 0 {
		a.FirstTradeAt = timestamp
		a.FirstTradeSol = sol
	}
	a.TradeCount++
	a.LastTradeAt = timestamp
	a.LastTradeSol = sol
}

// WalletStats aggregates every trade of one wallet.
// Corresponds to wallet_stats table in PostgreSQL.
type WalletStats struct {
	Wallet string // PRIMARY KEY
	TradeAggregates
	TokensTraded     int64 // distinct tokens traded
	SuccessfulTokens int64 // tokens whose realized P&L turned positive
	UpdatedAt        int64
}

// EntityID implements Entity.
func (w *WalletStats) EntityID() string { return w.Wallet }

// Clone implements Entity.
func (w *WalletStats) Clone() *WalletStats {
	c := *w
	return &c
}

// WalletTokenStats aggregates the trades of one wallet on one token.
// Corresponds to wallet_token_stats table in PostgreSQL.
type WalletTokenStats struct {
	ID     string // PRIMARY KEY, "{wallet}-{mint}"
	Wallet string
	Mint   string
	TradeAggregates
	TokensBought uint64 // raw token units
	TokensSold   uint64
	Successful   bool // realized P&L has crossed above zero at least once
	UpdatedAt    int64
}

// EntityID implements Entity.
func (w *WalletTokenStats) EntityID() string { return w.ID }

// Clone implements Entity.
func (w *WalletTokenStats) Clone() *WalletTokenStats {
	c := *w
	return &c
}
