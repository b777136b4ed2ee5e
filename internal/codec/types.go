package codec

import "github.com/gagliardetto/solana-go"

// Mainnet addresses of the bonding-curve program and its event authority.
const (
	DefaultProgramID      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	DefaultEventAuthority = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1"
)

// Instruction names as used in discriminator preimages.
const (
	IxInitialize = "initialize"
	IxSetParams  = "set_params"
	IxCreate     = "create"
	IxBuy        = "buy"
	IxSell       = "sell"
	IxWithdraw   = "withdraw"
)

// Event names as used in discriminator preimages.
const (
	EvCreate    = "CreateEvent"
	EvTrade     = "TradeEvent"
	EvComplete  = "CompleteEvent"
	EvSetParams = "SetParamsEvent"
)

// Account names referenced by the domain services.
const (
	AccGlobal                 = "global"
	AccFeeRecipient           = "feeRecipient"
	AccMint                   = "mint"
	AccMintAuthority          = "mintAuthority"
	AccBondingCurve           = "bondingCurve"
	AccAssociatedBondingCurve = "associatedBondingCurve"
	AccAssociatedUser         = "associatedUser"
	AccUser                   = "user"
	AccMetadataProgram        = "mplTokenMetadata"
	AccMetadata               = "metadata"
	AccLastWithdraw           = "lastWithdraw"
)

// InitializeArgs carries no fields.
type InitializeArgs struct{}

// SetParamsArgs updates the protocol fee and curve seed parameters.
type SetParamsArgs struct {
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// CreateArgs are the metadata strings of a new token.
type CreateArgs struct {
	Name   string
	Symbol string
	URI    string
}

// BuyArgs buys Amount tokens paying at most MaxSolCost lamports.
type BuyArgs struct {
	Amount     uint64
	MaxSolCost uint64
}

// SellArgs sells Amount tokens receiving at least MinSolOutput lamports.
type SellArgs struct {
	Amount       uint64
	MinSolOutput uint64
}

// WithdrawArgs carries no fields.
type WithdrawArgs struct{}

// CreateEvent is emitted by create.
type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	User         solana.PublicKey
}

// TradeEvent is emitted by buy and sell.
// Older program versions omit the trailing real reserves; HasRealReserves
// reports whether they were present.
type TradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	HasRealReserves      bool
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

// CompleteEvent is emitted when a curve reaches its completion threshold.
type CompleteEvent struct {
	User         solana.PublicKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Timestamp    int64
}

// SetParamsEvent mirrors SetParamsArgs.
type SetParamsEvent struct {
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// Instruction is a decoded program instruction.
type Instruction struct {
	Name          string
	Discriminator Discriminator
	Accounts      map[string]string // named accounts, base58
	Args          interface{}       // one of the *Args types
}

// Account returns the named account or an empty string.
func (ix *Instruction) Account(name string) string {
	if ix == nil {
		return ""
	}
	return ix.Accounts[name]
}

// Event is a decoded program event.
type Event struct {
	Name          string
	Discriminator Discriminator
	Data          interface{} // one of the *Event types
}
