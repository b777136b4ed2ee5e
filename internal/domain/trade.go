package domain

// Trade is an append-only record of one buy or sell against a bonding curve.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	ID           string // PRIMARY KEY, "{signature}-{sequence}"
	Signature    string // transaction signature
	Sequence     uint32 // ordinal of the trade instruction within the transaction
	Mint         string // soft reference to tokens.mint
	BondingCurve string // soft reference to bonding_curves.id
	User         string // trader wallet
	IsBuy        bool
	SolAmount    uint64 // lamports
	TokenAmount  uint64 // raw token units

	// Post-trade reserve snapshot
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64

	Slot      uint64
	Timestamp int64 // Unix timestamp in milliseconds
}

// EntityID implements Entity.
func (t *Trade) EntityID() string { return t.ID }

// Clone implements Entity.
func (t *Trade) Clone() *Trade {
	c := *t
	return &c
}

// Side returns "buy" or "sell".
func (t *Trade) Side() string {
	if t.IsBuy {
		return TradeSideBuy
	}
	return TradeSideSell
}

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)
