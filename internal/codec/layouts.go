package codec

import "fmt"

// Kind distinguishes instruction layouts from event layouts.
type Kind uint8

// Layout kinds.
const (
	KindInstruction Kind = iota + 1
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindInstruction:
		return "instruction"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Layout maps a discriminator to a typed decoder and encoder.
type Layout struct {
	Name          string
	Kind          Kind
	Discriminator Discriminator
	// Accounts names the leading positional accounts of an instruction.
	Accounts []string

	decode func(r *reader) interface{}
	encode func(w *writer, v interface{}) error
}

func instructionLayout(name string, accounts []string, decode func(*reader) interface{}, encode func(*writer, interface{}) error) *Layout {
	return &Layout{
		Name:          name,
		Kind:          KindInstruction,
		Discriminator: InstructionDiscriminator(name),
		Accounts:      accounts,
		decode:        decode,
		encode:        encode,
	}
}

func eventLayout(name string, decode func(*reader) interface{}, encode func(*writer, interface{}) error) *Layout {
	return &Layout{
		Name:          name,
		Kind:          KindEvent,
		Discriminator: EventDiscriminator(name),
		decode:        decode,
		encode:        encode,
	}
}

func typeMismatch(layout string, v interface{}) error {
	return fmt.Errorf("%s: unexpected value type %T", layout, v)
}

var tradeAccounts = []string{
	AccGlobal, AccFeeRecipient, AccMint, AccBondingCurve,
	AccAssociatedBondingCurve, AccAssociatedUser, AccUser,
}

// Layouts returns every instruction and event layout of the program.
func Layouts() []*Layout {
	return []*Layout{
		instructionLayout(IxInitialize, []string{AccGlobal, AccUser},
			func(*reader) interface{} { return &InitializeArgs{} },
			func(_ *writer, v interface{}) error {
				if _, ok := v.(*InitializeArgs); !ok {
					return typeMismatch(IxInitialize, v)
				}
				return nil
			}),

		instructionLayout(IxSetParams, []string{AccGlobal, AccUser},
			func(r *reader) interface{} {
				return &SetParamsArgs{
					FeeRecipient:                r.pubkey("feeRecipient"),
					InitialVirtualTokenReserves: r.u64("initialVirtualTokenReserves"),
					InitialVirtualSolReserves:   r.u64("initialVirtualSolReserves"),
					InitialRealTokenReserves:    r.u64("initialRealTokenReserves"),
					TokenTotalSupply:            r.u64("tokenTotalSupply"),
					FeeBasisPoints:              r.u64("feeBasisPoints"),
				}
			},
			func(w *writer, v interface{}) error {
				a, ok := v.(*SetParamsArgs)
				if !ok {
					return typeMismatch(IxSetParams, v)
				}
				w.pubkey(a.FeeRecipient)
				w.u64(a.InitialVirtualTokenReserves)
				w.u64(a.InitialVirtualSolReserves)
				w.u64(a.InitialRealTokenReserves)
				w.u64(a.TokenTotalSupply)
				w.u64(a.FeeBasisPoints)
				return nil
			}),

		instructionLayout(IxCreate,
			[]string{
				AccMint, AccMintAuthority, AccBondingCurve, AccAssociatedBondingCurve,
				AccGlobal, AccMetadataProgram, AccMetadata, AccUser,
			},
			func(r *reader) interface{} {
				return &CreateArgs{
					Name:   r.str("name"),
					Symbol: r.str("symbol"),
					URI:    r.str("uri"),
				}
			},
			func(w *writer, v interface{}) error {
				a, ok := v.(*CreateArgs)
				if !ok {
					return typeMismatch(IxCreate, v)
				}
				w.str(a.Name)
				w.str(a.Symbol)
				w.str(a.URI)
				return nil
			}),

		instructionLayout(IxBuy, tradeAccounts,
			func(r *reader) interface{} {
				return &BuyArgs{
					Amount:     r.u64("amount"),
					MaxSolCost: r.u64("maxSolCost"),
				}
			},
			func(w *writer, v interface{}) error {
				a, ok := v.(*BuyArgs)
				if !ok {
					return typeMismatch(IxBuy, v)
				}
				w.u64(a.Amount)
				w.u64(a.MaxSolCost)
				return nil
			}),

		instructionLayout(IxSell, tradeAccounts,
			func(r *reader) interface{} {
				return &SellArgs{
					Amount:       r.u64("amount"),
					MinSolOutput: r.u64("minSolOutput"),
				}
			},
			func(w *writer, v interface{}) error {
				a, ok := v.(*SellArgs)
				if !ok {
					return typeMismatch(IxSell, v)
				}
				w.u64(a.Amount)
				w.u64(a.MinSolOutput)
				return nil
			}),

		instructionLayout(IxWithdraw,
			[]string{
				AccGlobal, AccLastWithdraw, AccMint, AccBondingCurve,
				AccAssociatedBondingCurve, AccAssociatedUser, AccUser,
			},
			func(*reader) interface{} { return &WithdrawArgs{} },
			func(_ *writer, v interface{}) error {
				if _, ok := v.(*WithdrawArgs); !ok {
					return typeMismatch(IxWithdraw, v)
				}
				return nil
			}),

		eventLayout(EvCreate,
			func(r *reader) interface{} {
				return &CreateEvent{
					Name:         r.str("name"),
					Symbol:       r.str("symbol"),
					URI:          r.str("uri"),
					Mint:         r.pubkey("mint"),
					BondingCurve: r.pubkey("bondingCurve"),
					User:         r.pubkey("user"),
				}
			},
			func(w *writer, v interface{}) error {
				e, ok := v.(*CreateEvent)
				if !ok {
					return typeMismatch(EvCreate, v)
				}
				w.str(e.Name)
				w.str(e.Symbol)
				w.str(e.URI)
				w.pubkey(e.Mint)
				w.pubkey(e.BondingCurve)
				w.pubkey(e.User)
				return nil
			}),

		eventLayout(EvTrade,
			func(r *reader) interface{} {
				e := &TradeEvent{
					Mint:                 r.pubkey("mint"),
					SolAmount:            r.u64("solAmount"),
					TokenAmount:          r.u64("tokenAmount"),
					IsBuy:                r.boolean("isBuy"),
					User:                 r.pubkey("user"),
					Timestamp:            r.i64("timestamp"),
					VirtualSolReserves:   r.u64("virtualSolReserves"),
					VirtualTokenReserves: r.u64("virtualTokenReserves"),
				}
				if r.err == nil && r.remaining() >= 16 {
					e.HasRealReserves = true
					e.RealSolReserves = r.u64("realSolReserves")
					e.RealTokenReserves = r.u64("realTokenReserves")
				}
				return e
			},
			func(w *writer, v interface{}) error {
				e, ok := v.(*TradeEvent)
				if !ok {
					return typeMismatch(EvTrade, v)
				}
				w.pubkey(e.Mint)
				w.u64(e.SolAmount)
				w.u64(e.TokenAmount)
				w.boolean(e.IsBuy)
				w.pubkey(e.User)
				w.i64(e.Timestamp)
				w.u64(e.VirtualSolReserves)
				w.u64(e.VirtualTokenReserves)
				if e.HasRealReserves {
					w.u64(e.RealSolReserves)
					w.u64(e.RealTokenReserves)
				}
				return nil
			}),

		eventLayout(EvComplete,
			func(r *reader) interface{} {
				return &CompleteEvent{
					User:         r.pubkey("user"),
					Mint:         r.pubkey("mint"),
					BondingCurve: r.pubkey("bondingCurve"),
					Timestamp:    r.i64("timestamp"),
				}
			},
			func(w *writer, v interface{}) error {
				e, ok := v.(*CompleteEvent)
				if !ok {
					return typeMismatch(EvComplete, v)
				}
				w.pubkey(e.User)
				w.pubkey(e.Mint)
				w.pubkey(e.BondingCurve)
				w.i64(e.Timestamp)
				return nil
			}),

		eventLayout(EvSetParams,
			func(r *reader) interface{} {
				return &SetParamsEvent{
					FeeRecipient:                r.pubkey("feeRecipient"),
					InitialVirtualTokenReserves: r.u64("initialVirtualTokenReserves"),
					InitialVirtualSolReserves:   r.u64("initialVirtualSolReserves"),
					InitialRealTokenReserves:    r.u64("initialRealTokenReserves"),
					TokenTotalSupply:            r.u64("tokenTotalSupply"),
					FeeBasisPoints:              r.u64("feeBasisPoints"),
				}
			},
			func(w *writer, v interface{}) error {
				e, ok := v.(*SetParamsEvent)
				if !ok {
					return typeMismatch(EvSetParams, v)
				}
				w.pubkey(e.FeeRecipient)
				w.u64(e.InitialVirtualTokenReserves)
				w.u64(e.InitialVirtualSolReserves)
				w.u64(e.InitialRealTokenReserves)
				w.u64(e.TokenTotalSupply)
				w.u64(e.FeeBasisPoints)
				return nil
			}),
	}
}
