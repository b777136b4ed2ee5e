package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/observability"
	"bonding-curve-indexer/internal/orchestrator"
	"bonding-curve-indexer/internal/solana"
	"bonding-curve-indexer/internal/storage"
)

// Runner defaults.
const (
	DefaultBatchSlots   uint64 = 100
	DefaultHeadLag      uint64 = 32
	DefaultPollInterval        = 2 * time.Second
)

// BatchProcessor applies a batch of blocks. Implemented by *orchestrator.Orchestrator.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, blocks []*solana.Block) (*orchestrator.BatchResult, error)
}

// Runner walks slot ranges in batches and records progress after every
// flushed batch.
type Runner struct {
	source       *BlockSource
	processor    BatchProcessor
	progress     storage.ProgressStore
	rpc          solana.RPCClient
	ws           solana.WSClient
	batchSlots   uint64
	headLag      uint64
	pollInterval time.Duration
	log          logrus.FieldLogger
	metrics      *observability.Metrics
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source    *BlockSource
	Processor BatchProcessor
	Progress  storage.ProgressStore // optional, enables resume
	RPC       solana.RPCClient      // head polling
	WS        solana.WSClient       // optional, slot notifications for live mode

	BatchSlots   uint64        // Default: 100 slots per batch
	HeadLag      uint64        // Default: 32 - live mode stays this far behind the head
	PollInterval time.Duration // Default: 2s - getSlot polling when WS is unavailable
	Logger       logrus.FieldLogger
	Metrics      *observability.Metrics
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	batchSlots := opts.BatchSlots
	if batchSlots == 0 {
		batchSlots = DefaultBatchSlots
	}
	headLag := opts.HeadLag
	if headLag == 0 {
		headLag = DefaultHeadLag
	}
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Runner{
		source:       opts.Source,
		processor:    opts.Processor,
		progress:     opts.Progress,
		rpc:          opts.RPC,
		ws:           opts.WS,
		batchSlots:   batchSlots,
		headLag:      headLag,
		pollInterval: pollInterval,
		log:          log.WithField("component", "runner"),
		metrics:      opts.Metrics,
	}
}

// RunResult summarizes the batches a run processed.
type RunResult struct {
	Batches      int
	Blocks       int
	Dispatched   int
	DecodeFailed int
	Failed       int
	FirstSlot    uint64
	LastSlot     uint64 // last slot covered by a flushed batch
}

func (r *RunResult) add(from, to uint64, br *orchestrator.BatchResult) {
	if r.Batches == 0 {
		r.FirstSlot = from
	}
	r.Batches++
	r.LastSlot = to
	if br == nil {
		return
	}
	r.Blocks += br.Blocks
	r.Dispatched += br.Dispatched()
	r.DecodeFailed += br.DecodeFailed
	r.Failed += br.Failed
}

// Backfill processes [start, end] in batches, resuming after saved progress.
// An end of 0 means the current head minus the head lag.
func (r *Runner) Backfill(ctx context.Context, start, end uint64) (*RunResult, error) {
	result := &RunResult{}

	from, err := r.resumeFrom(ctx, start)
	if err != nil {
		return result, err
	}
	if end == 0 {
		head, err := r.rpc.GetSlot(ctx)
		if err != nil {
			return result, fmt.Errorf("get slot: %w", err)
		}
		r.metrics.SetHeadSlot(head)
		end = r.target(head)
	}

	r.log.WithFields(logrus.Fields{
		"from":        from,
		"to":          end,
		"batch_slots": r.batchSlots,
	}).Info("Starting backfill")

	if err := r.processUpTo(ctx, from, end, result); err != nil {
		return result, err
	}

	r.log.WithFields(logrus.Fields{
		"batches":    result.Batches,
		"blocks":     result.Blocks,
		"dispatched": result.Dispatched,
		"failed":     result.Failed,
	}).Info("Backfill completed")
	return result, nil
}

// Follow tails the chain head until ctx is cancelled. Slot notifications
// over WebSocket drive it; getSlot polling takes over when the
// subscription is unavailable. A zero start with no saved progress begins
// at the current head.
func (r *Runner) Follow(ctx context.Context, start uint64) error {
	next, err := r.resumeFrom(ctx, start)
	if err != nil {
		return err
	}
	if next == 0 {
		head, err := r.rpc.GetSlot(ctx)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		next = r.target(head)
	}

	r.log.WithField("from", next).Info("Following chain head")

	heads := r.heads(ctx)
	result := &RunResult{}
	for {
		select {
		case <-ctx.Done():
			r.log.WithField("last_slot", result.LastSlot).Info("Runner stopping...")
			return ctx.Err()
		case head := <-heads:
			r.metrics.SetHeadSlot(head)
			target := r.target(head)
			if target < next {
				continue
			}
			if err := r.processUpTo(ctx, next, target, result); err != nil {
				return err
			}
			next = target + 1
		}
	}
}

// target is the highest slot safe to fetch for head.
func (r *Runner) target(head uint64) uint64 {
	if head <= r.headLag {
		return 0
	}
	return head - r.headLag
}

// resumeFrom returns the first slot to process.
func (r *Runner) resumeFrom(ctx context.Context, start uint64) (uint64, error) {
	if r.progress == nil {
		return start, nil
	}
	p, err := r.progress.GetLastProcessed(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load progress: %w", err)
	}
	if p.Slot+1 > start {
		r.log.WithField("slot", p.Slot).Info("Resuming after saved progress")
		return p.Slot + 1, nil
	}
	return start, nil
}

// processUpTo runs batches of batchSlots slots over [from, to].
func (r *Runner) processUpTo(ctx context.Context, from, to uint64, result *RunResult) error {
	for from <= to {
		if err := ctx.Err(); err != nil {
			return err
		}
		batchEnd := from + r.batchSlots - 1
		if batchEnd > to || batchEnd < from {
			batchEnd = to
		}
		if err := r.processBatch(ctx, from, batchEnd, result); err != nil {
			return err
		}
		if batchEnd == ^uint64(0) {
			return nil
		}
		from = batchEnd + 1
	}
	return nil
}

func (r *Runner) processBatch(ctx context.Context, from, to uint64, result *RunResult) error {
	blocks, err := r.source.FetchRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch slots %d-%d: %w", from, to, err)
	}

	var br *orchestrator.BatchResult
	if len(blocks) > 0 {
		br, err = r.processor.ProcessBatch(ctx, blocks)
		if err != nil {
			return fmt.Errorf("process slots %d-%d: %w", from, to, err)
		}
	}

	if r.progress != nil {
		p := &storage.Progress{Slot: to, UpdatedAt: time.Now().UnixMilli()}
		if err := r.progress.SetLastProcessed(ctx, p); err != nil {
			return fmt.Errorf("save progress at %d: %w", to, err)
		}
	}
	r.metrics.SetLastFlushedSlot(to)
	result.add(from, to, br)
	return nil
}

// heads emits chain head slots. Only the latest head is kept when the
// consumer falls behind.
func (r *Runner) heads(ctx context.Context) <-chan uint64 {
	out := make(chan uint64, 1)
	go func() {
		if r.ws != nil {
			notifications, err := r.ws.SubscribeSlots(ctx)
			if err == nil {
				r.forwardNotifications(ctx, notifications, out)
				if ctx.Err() != nil {
					return
				}
				r.log.Warn("Slot subscription closed, falling back to polling")
			} else {
				r.log.WithError(err).Warn("Slot subscription failed, falling back to polling")
			}
		}
		r.poll(ctx, out)
	}()
	return out
}

func (r *Runner) forwardNotifications(ctx context.Context, in <-chan solana.SlotNotification, out chan uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			r.metrics.RecordSlotNotification()
			offer(out, n.Slot)
		}
	}
}

func (r *Runner) poll(ctx context.Context, out chan uint64) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		head, err := r.rpc.GetSlot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.WithError(err).Warn("Failed to poll slot")
		} else {
			offer(out, head)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// offer replaces any unread value in out with v. out must have capacity 1
// and a single sender.
func offer(out chan uint64, v uint64) {
	select {
	case out <- v:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- v
}
