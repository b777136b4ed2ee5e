package domain

// GlobalConfigID is the primary key of the protocol singleton.
const GlobalConfigID = "global"

// DefaultFeeBasisPoints is the protocol fee applied before any setParams is seen.
const DefaultFeeBasisPoints uint64 = 30

// GlobalConfig is the protocol-wide configuration singleton.
// Corresponds to global_config table in PostgreSQL.
type GlobalConfig struct {
	ID             string // always GlobalConfigID
	FeeRecipient   string // fee recipient address
	FeeBasisPoints uint64
	Initialized    bool
	UpdatedSlot    uint64 // slot of the last initialize/setParams
	CreatedAt      int64  // Unix timestamp in milliseconds
	UpdatedAt      int64  // Unix timestamp in milliseconds

	// Curve seed values from the last setParams.
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	DefaultsSlot                uint64 // slot of the last setParams, 0 if none was indexed
}

// ProtocolDefaults returns the defaults recorded by the last setParams.
// ok is false while no setParams has been indexed.
func (g *GlobalConfig) ProtocolDefaults() (d ProtocolDefaults, ok bool) {
	if g.DefaultsSlot == 0 {
		return ProtocolDefaults{}, false
	}
	return ProtocolDefaults{
		FeeRecipient:                g.FeeRecipient,
		InitialVirtualTokenReserves: g.InitialVirtualTokenReserves,
		InitialVirtualSolReserves:   g.InitialVirtualSolReserves,
		InitialRealTokenReserves:    g.InitialRealTokenReserves,
		TokenTotalSupply:            g.TokenTotalSupply,
		FeeBasisPoints:              g.FeeBasisPoints,
		UpdatedSlot:                 g.DefaultsSlot,
	}, true
}

// SetProtocolDefaults records d as the seed values set at slot.
func (g *GlobalConfig) SetProtocolDefaults(d ProtocolDefaults, slot uint64) {
	g.FeeRecipient = d.FeeRecipient
	g.FeeBasisPoints = d.FeeBasisPoints
	g.InitialVirtualTokenReserves = d.InitialVirtualTokenReserves
	g.InitialVirtualSolReserves = d.InitialVirtualSolReserves
	g.InitialRealTokenReserves = d.InitialRealTokenReserves
	g.TokenTotalSupply = d.TokenTotalSupply
	g.DefaultsSlot = slot
}

// EntityID implements Entity.
func (g *GlobalConfig) EntityID() string { return g.ID }

// Clone implements Entity.
func (g *GlobalConfig) Clone() *GlobalConfig {
	c := *g
	return &c
}
