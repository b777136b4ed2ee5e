package stub

import (
	"context"
	"sync"

	"bonding-curve-indexer/internal/solana"
)

// WSClient implements solana.WSClient over a channel fed by the test.
type WSClient struct {
	// SubscribeErr, when set, is returned by SubscribeSlots.
	SubscribeErr error

	mu     sync.Mutex
	ch     chan solana.SlotNotification
	closed bool
}

// NewWSClient creates a stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{ch: make(chan solana.SlotNotification, 16)}
}

var _ solana.WSClient = (*WSClient)(nil)

// SubscribeSlots returns the notification channel.
func (c *WSClient) SubscribeSlots(_ context.Context) (<-chan solana.SlotNotification, error) {
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	return c.ch, nil
}

// Notify delivers a slot notification. It is a no-op after Close.
func (c *WSClient) Notify(slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.ch <- solana.SlotNotification{Slot: slot, Parent: slot - 1}
}

// Close closes the notification channel.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}
