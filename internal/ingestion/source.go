// Package ingestion turns chain slots into batches for the orchestrator.
package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bonding-curve-indexer/internal/observability"
	"bonding-curve-indexer/internal/solana"
)

// DefaultFetchWorkers bounds concurrent getBlock calls.
const DefaultFetchWorkers = 4

// BlockSource fetches confirmed blocks over RPC.
type BlockSource struct {
	rpc     solana.RPCClient
	workers int
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// BlockSourceOptions configures BlockSource.
type BlockSourceOptions struct {
	RPC     solana.RPCClient
	Workers int // concurrent getBlock calls, default DefaultFetchWorkers
	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
}

// NewBlockSource creates a block source.
func NewBlockSource(opts BlockSourceOptions) *BlockSource {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultFetchWorkers
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BlockSource{
		rpc:     opts.RPC,
		workers: workers,
		log:     log.WithField("component", "block_source"),
		metrics: opts.Metrics,
	}
}

// FetchRange returns the blocks produced in [start, end], ordered by slot.
// Skipped slots are omitted and failed transactions are removed.
func (s *BlockSource) FetchRange(ctx context.Context, start, end uint64) ([]*solana.Block, error) {
	if end < start {
		return nil, nil
	}
	slots, err := s.rpc.GetBlocks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("get blocks %d-%d: %w", start, end, err)
	}

	blocks := make([]*solana.Block, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, slot := range slots {
		g.Go(func() error {
			block, err := s.rpc.GetBlock(gctx, slot)
			if errors.Is(err, solana.ErrSlotSkipped) {
				s.metrics.RecordBlock(true)
				s.log.WithField("slot", slot).Debug("Slot listed but no block returned")
				return nil
			}
			if err != nil {
				return fmt.Errorf("get block %d: %w", slot, err)
			}
			s.metrics.RecordBlock(false)
			blocks[i] = withoutFailed(block)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := blocks[:0]
	for _, b := range blocks {
		if b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

// withoutFailed returns block with failed transactions dropped.
func withoutFailed(block *solana.Block) *solana.Block {
	kept := make([]solana.Transaction, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		if !tx.Failed() {
			kept = append(kept, tx)
		}
	}
	if len(kept) == len(block.Transactions) {
		return block
	}
	b := *block
	b.Transactions = kept
	return &b
}
