package domain

// BondingCurve holds the reserve state of one token's bonding curve.
// Corresponds to bonding_curves table in PostgreSQL.
type BondingCurve struct {
	ID                   string // PRIMARY KEY, curve PDA address
	Token                string // soft reference to tokens.mint, empty until resolved
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	TokenTotalSupply     uint64
	FeeBasisPoints       uint64
	Complete             bool   // curve reached its migration threshold
	LastTradeSlot        uint64 // slot of the last applied trade
	CreatedAt            int64  // Unix timestamp in milliseconds
	UpdatedAt            int64  // Unix timestamp in milliseconds
}

// EntityID implements Entity.
func (b *BondingCurve) EntityID() string { return b.ID }

// Clone implements Entity.
func (b *BondingCurve) Clone() *BondingCurve {
	c := *b
	return &c
}

// ApplyBuy adds sol and removes tokens from the real reserves.
// Real token reserves never go below zero.
func (b *BondingCurve) ApplyBuy(solAmount, tokenAmount uint64) {
	b.RealSolReserves = addSaturating(b.RealSolReserves, solAmount)
	b.RealTokenReserves = subClamped(b.RealTokenReserves, tokenAmount)
}

// ApplySell removes sol and adds tokens to the real reserves.
// Real sol reserves never go below zero.
func (b *BondingCurve) ApplySell(solAmount, tokenAmount uint64) {
	b.RealSolReserves = subClamped(b.RealSolReserves, solAmount)
	b.RealTokenReserves = addSaturating(b.RealTokenReserves, tokenAmount)
}

// Drain zeroes the real reserves. Virtual reserves are left untouched.
func (b *BondingCurve) Drain() {
	b.RealSolReserves = 0
	b.RealTokenReserves = 0
}

func subClamped(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func addSaturating(a, b uint64) uint64 {
	s := a + b
	if s < a {
		return ^uint64(0)
	}
	return s
}
