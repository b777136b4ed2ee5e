package solana

// Block represents a confirmed Solana block with decoded instructions.
type Block struct {
	Slot         uint64
	ParentSlot   uint64
	BlockTime    int64 // Unix timestamp (seconds), 0 if unknown
	Transactions []Transaction
}

// TimestampMs returns the block time in milliseconds.
func (b *Block) TimestampMs() int64 {
	return b.BlockTime * 1000
}

// Transaction is a transaction inside a block.
type Transaction struct {
	Signature    string
	Slot         uint64
	BlockTime    int64       // Unix timestamp (seconds)
	Err          interface{} // non-nil for failed transactions
	Instructions []Instruction
	LogMessages  []string
}

// Failed reports whether the transaction failed on chain.
func (t *Transaction) Failed() bool {
	return t.Err != nil
}

// Instruction is a top-level or inner instruction with resolved account keys.
type Instruction struct {
	ProgramID string
	Accounts  []string
	Data      []byte
	// Index is the position of the top-level instruction within its transaction.
	Index int
	// Inner lists the instructions invoked by this one via CPI, in execution order.
	Inner []Instruction
}
