package domain

// Protocol seed values used before the first setParams is observed.
const (
	DefaultInitialVirtualTokenReserves uint64 = 1_073_000_000_000_000
	DefaultInitialVirtualSolReserves   uint64 = 30_000_000_000
	DefaultInitialRealTokenReserves    uint64 = 793_100_000_000_000
	DefaultTokenTotalSupply            uint64 = 1_000_000_000_000_000
)

// ProtocolDefaults are the curve seed parameters applied by create instructions.
// The value is owned by the batch orchestrator and replaced by setParams.
type ProtocolDefaults struct {
	FeeRecipient                string
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
	UpdatedSlot                 uint64 // slot of the setParams that produced the value, 0 for built-ins
}

// DefaultProtocolDefaults returns the hard-coded protocol defaults.
func DefaultProtocolDefaults() ProtocolDefaults {
	return ProtocolDefaults{
		InitialVirtualTokenReserves: DefaultInitialVirtualTokenReserves,
		InitialVirtualSolReserves:   DefaultInitialVirtualSolReserves,
		InitialRealTokenReserves:    DefaultInitialRealTokenReserves,
		TokenTotalSupply:            DefaultTokenTotalSupply,
		FeeBasisPoints:              DefaultFeeBasisPoints,
	}
}

// NewCurve seeds a bonding curve for a freshly created token.
func (d ProtocolDefaults) NewCurve(id, mint string, timestamp int64) *BondingCurve {
	return &BondingCurve{
		ID:                   id,
		Token:                mint,
		VirtualSolReserves:   d.InitialVirtualSolReserves,
		VirtualTokenReserves: d.InitialVirtualTokenReserves,
		RealTokenReserves:    d.InitialRealTokenReserves,
		TokenTotalSupply:     d.TokenTotalSupply,
		FeeBasisPoints:       d.FeeBasisPoints,
		CreatedAt:            timestamp,
		UpdatedAt:            timestamp,
	}
}

// SynthesizedCurve builds a curve first observed through a trade. Supply and
// fee come from the defaults; real reserves start empty so only the trade
// delta contributes to them.
func (d ProtocolDefaults) SynthesizedCurve(id, mint string, timestamp int64) *BondingCurve {
	c := d.NewCurve(id, mint, timestamp)
	c.RealSolReserves = 0
	c.RealTokenReserves = 0
	return c
}
