package solana

import (
	"context"
	"errors"
)

// ErrSlotSkipped is returned by GetBlock for slots that produced no block.
var ErrSlotSkipped = errors.New("slot skipped")

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetBlock retrieves a block by slot number. Returns ErrSlotSkipped if the slot has no block.
	GetBlock(ctx context.Context, slot uint64) (*Block, error)

	// GetBlocks returns the slots of confirmed blocks within [start, end].
	GetBlocks(ctx context.Context, start, end uint64) ([]uint64, error)

	// GetSlot returns the current confirmed slot.
	GetSlot(ctx context.Context) (uint64, error)
}
