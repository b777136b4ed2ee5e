package stub

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/solana"
)

// filler stands in for accounts a fixture does not name.
const filler = "11111111111111111111111111111111"

// Key returns a deterministic public key derived from n.
func Key(n byte) string {
	b := make([]byte, 32)
	for i := range b {
		b[i] = n
	}
	b[0] = 0xA0
	return solanago.PublicKeyFromBytes(b).String()
}

// PublicKey parses a base58 address produced by Key.
func PublicKey(addr string) solanago.PublicKey {
	return solanago.MustPublicKeyFromBase58(addr)
}

// TxBuilder assembles a transaction of encoded protocol instructions.
// Encoding failures panic; builders are for fixtures only.
type TxBuilder struct {
	registry       *codec.Registry
	programID      string
	eventAuthority string
	tx             solana.Transaction
}

// NewTx starts a transaction for the default program addresses.
func NewTx(signature string) *TxBuilder {
	return &TxBuilder{
		registry:       codec.DefaultRegistry(),
		programID:      codec.DefaultProgramID,
		eventAuthority: codec.DefaultEventAuthority,
		tx:             solana.Transaction{Signature: signature},
	}
}

// Failed marks the transaction as failed on chain.
func (b *TxBuilder) Failed() *TxBuilder {
	b.tx.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	return b
}

// Instruction appends a top-level program instruction. accounts maps layout
// account names to addresses; events are emitted as self-CPI inner instructions.
func (b *TxBuilder) Instruction(name string, args interface{}, accounts map[string]string, events ...interface{}) *TxBuilder {
	ix := b.encode(name, args, accounts)
	ix.Index = len(b.tx.Instructions)
	for _, ev := range events {
		ix.Inner = append(ix.Inner, b.event(ev))
	}
	b.tx.Instructions = append(b.tx.Instructions, ix)
	return b
}

// Foreign appends a top-level instruction of another program.
func (b *TxBuilder) Foreign(programID string, data []byte) *TxBuilder {
	b.tx.Instructions = append(b.tx.Instructions, solana.Instruction{
		ProgramID: programID,
		Accounts:  []string{filler},
		Data:      data,
		Index:     len(b.tx.Instructions),
	})
	return b
}

// Routed appends a top-level instruction of routerID that invokes the
// program instruction via CPI. The events follow it as sibling inner
// instructions.
func (b *TxBuilder) Routed(routerID, name string, args interface{}, accounts map[string]string, events ...interface{}) *TxBuilder {
	outer := solana.Instruction{
		ProgramID: routerID,
		Accounts:  []string{filler},
		Data:      []byte{1},
		Index:     len(b.tx.Instructions),
	}
	outer.Inner = append(outer.Inner, b.encode(name, args, accounts))
	for _, ev := range events {
		outer.Inner = append(outer.Inner, b.event(ev))
	}
	b.tx.Instructions = append(b.tx.Instructions, outer)
	return b
}

// Tx returns the assembled transaction.
func (b *TxBuilder) Tx() solana.Transaction {
	return b.tx
}

func (b *TxBuilder) encode(name string, args interface{}, accounts map[string]string) solana.Instruction {
	l, ok := b.registry.Layout(name)
	if !ok {
		panic(fmt.Sprintf("stub: unknown instruction %q", name))
	}
	data, err := b.registry.EncodeInstruction(name, args)
	if err != nil {
		panic(fmt.Sprintf("stub: encode %s: %v", name, err))
	}

	keys := make([]string, len(l.Accounts))
	for i, acc := range l.Accounts {
		keys[i] = filler
		if addr, ok := accounts[acc]; ok {
			keys[i] = addr
		}
	}
	return solana.Instruction{ProgramID: b.programID, Accounts: keys, Data: data}
}

func (b *TxBuilder) event(ev interface{}) solana.Instruction {
	var name string
	switch ev.(type) {
	case *codec.CreateEvent:
		name = codec.EvCreate
	case *codec.TradeEvent:
		name = codec.EvTrade
	case *codec.CompleteEvent:
		name = codec.EvComplete
	case *codec.SetParamsEvent:
		name = codec.EvSetParams
	default:
		panic(fmt.Sprintf("stub: unsupported event %T", ev))
	}
	data, err := b.registry.EncodeEvent(name, ev, true)
	if err != nil {
		panic(fmt.Sprintf("stub: encode %s: %v", name, err))
	}
	return solana.Instruction{
		ProgramID: b.programID,
		Accounts:  []string{b.eventAuthority},
		Data:      data,
	}
}

// NewBlock assembles a block from transactions, stamping slot and time on each.
func NewBlock(slot uint64, blockTime int64, txs ...solana.Transaction) *solana.Block {
	block := &solana.Block{Slot: slot, BlockTime: blockTime}
	if slot > 0 {
		block.ParentSlot = slot - 1
	}
	for _, tx := range txs {
		tx.Slot = slot
		tx.BlockTime = blockTime
		block.Transactions = append(block.Transactions, tx)
	}
	return block
}
