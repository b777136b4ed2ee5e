package stub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bonding-curve-indexer/internal/solana"
)

// ErrInjected is returned for slots registered with FailSlot.
var ErrInjected = errors.New("injected rpc failure")

// RPCClient implements solana.RPCClient over in-memory blocks.
type RPCClient struct {
	mu      sync.RWMutex
	Blocks  map[uint64]*solana.Block
	Failing map[uint64]error
	Tip     uint64

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Blocks:  make(map[uint64]*solana.Block),
		Failing: make(map[uint64]error),
		calls:   make(map[string]int),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetBlock returns the stored block or ErrSlotSkipped.
func (c *RPCClient) GetBlock(_ context.Context, slot uint64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getBlock"]++

	if err, ok := c.Failing[slot]; ok {
		return nil, err
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %d", solana.ErrSlotSkipped, slot)
	}
	return block, nil
}

// GetBlocks returns stored slots within [start, end] in ascending order.
func (c *RPCClient) GetBlocks(_ context.Context, start, end uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getBlocks"]++

	var slots []uint64
	for slot := range c.Blocks {
		if slot >= start && slot <= end {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, nil
}

// GetSlot returns Tip, or the highest stored slot when Tip is zero.
func (c *RPCClient) GetSlot(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getSlot"]++

	if c.Tip != 0 {
		return c.Tip, nil
	}
	var tip uint64
	for slot := range c.Blocks {
		if slot > tip {
			tip = slot
		}
	}
	return tip, nil
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *solana.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[block.Slot] = block
}

// FailSlot makes GetBlock return err for slot. A nil err uses ErrInjected.
func (c *RPCClient) FailSlot(slot uint64, err error) {
	if err == nil {
		err = ErrInjected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Failing[slot] = err
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[method]
}

// SetTip sets the slot reported by GetSlot.
func (c *RPCClient) SetTip(slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Tip = slot
}
