// Package orchestrator runs one batch of blocks through the indexer.
// It coordinates: collect ids → prefetch → decode and dispatch → flush
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/observability"
	"bonding-curve-indexer/internal/service"
	"bonding-curve-indexer/internal/solana"
	"bonding-curve-indexer/internal/storage"
)

// Batch phase names, also used as metric labels.
const (
	PhaseCollect  = "collect"
	PhasePrefetch = "prefetch"
	PhaseDispatch = "dispatch"
	PhaseFlush    = "flush"
	PhaseArchive  = "archive"
)

// Orchestrator applies batches of blocks to the entity caches and flushes them.
// Batches are processed one at a time.
type Orchestrator struct {
	programID string
	registry  *codec.Registry
	caches    *cache.Set
	services  *service.Services

	defaultsStore storage.DefaultsStore
	archive       storage.TradeArchive
	workers       int

	log     logrus.FieldLogger
	metrics *observability.Metrics

	mu       sync.Mutex
	defaults domain.ProtocolDefaults // last known value, used when the store is unavailable
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	ProgramID      string
	EventAuthority string
	Caches         *cache.Set

	// Optional
	Registry      *codec.Registry       // defaults to codec.DefaultRegistry()
	DefaultsStore storage.DefaultsStore // protocol defaults warm start
	Archive       storage.TradeArchive  // append-only copy of flushed trades
	Workers       int                   // dispatch lanes run concurrently when > 1
	Logger        logrus.FieldLogger
	Metrics       *observability.Metrics
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = codec.DefaultRegistry()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		programID: opts.ProgramID,
		registry:  registry,
		caches:    opts.Caches,
		services: service.Wire(opts.Caches, service.Config{
			ProgramID:      opts.ProgramID,
			EventAuthority: opts.EventAuthority,
			Registry:       registry,
			Logger:         log,
		}),
		defaultsStore: opts.DefaultsStore,
		archive:       opts.Archive,
		workers:       workers,
		log:           log.WithField("component", "orchestrator"),
		metrics:       opts.Metrics,
		defaults:      domain.DefaultProtocolDefaults(),
	}
}

// BatchResult contains results from one batch.
type BatchResult struct {
	FirstSlot    uint64
	LastSlot     uint64
	Blocks       int
	Instructions map[string]int // dispatched instructions by kind
	Skipped      int            // decoded but not handled by any service
	DecodeFailed int
	Failed       int // handler errors and panics
	Lanes        int
	Prefetched   int
	Stats        service.StatsSnapshot
	Flush        *cache.SetReport
	Errors       []string
	Duration     time.Duration
}

// Dispatched returns the total number of instructions handled.
func (r *BatchResult) Dispatched() int {
	n := 0
	for _, c := range r.Instructions {
		n += c
	}
	return n
}

// ProcessBatch runs blocks through all phases. Per-instruction failures are
// counted and logged; the returned error is set only when the batch could
// not be persisted.
func (o *Orchestrator) ProcessBatch(ctx context.Context, blocks []*solana.Block) (*BatchResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	result := &BatchResult{
		Blocks:       len(blocks),
		Instructions: make(map[string]int),
	}
	if len(blocks) > 0 {
		result.FirstSlot = blocks[0].Slot
		result.LastSlot = blocks[len(blocks)-1].Slot
	}
	log := o.log.WithField("batch", fmt.Sprintf("%d-%d", result.FirstSlot, result.LastSlot))

	o.caches.Reset()
	defaults := o.loadDefaults(ctx, log)
	initial := defaults

	// Phase 1: collect ids
	phase := time.Now()
	items := o.collect(blocks)
	o.identify(items)
	ids := prefetchIDs(items)
	o.metrics.ObservePhase(PhaseCollect, time.Since(phase))

	// Phase 2: prefetch
	phase = time.Now()
	n, err := o.caches.Prefetch(ctx, ids)
	result.Prefetched = n
	o.metrics.ObservePhase(PhasePrefetch, time.Since(phase))
	if err != nil {
		o.metrics.RecordBatch(false, 0)
		return result, fmt.Errorf("phase prefetch failed: %w", err)
	}

	// Phase 3: decode and dispatch
	phase = time.Now()
	stats := &service.Stats{}
	lanes, err := o.dispatch(ctx, items, &defaults, stats, log)
	result.Lanes = lanes
	o.metrics.ObservePhase(PhaseDispatch, time.Since(phase))
	if err != nil {
		o.metrics.RecordBatch(false, 0)
		return result, fmt.Errorf("phase dispatch failed: %w", err)
	}
	o.tally(items, result)
	result.Stats = stats.Snapshot()
	o.metrics.RecordServiceStats(result.Stats)

	// Phase 4: flush
	phase = time.Now()
	report, err := o.caches.Flush(ctx)
	result.Flush = report
	o.metrics.ObservePhase(PhaseFlush, time.Since(phase))
	if err != nil {
		o.metrics.RecordBatch(false, 0)
		return result, fmt.Errorf("phase flush failed: %w", err)
	}
	for _, id := range report.Failed() {
		result.Errors = append(result.Errors, "write failed: "+id)
	}

	if defaults != initial {
		o.saveDefaults(ctx, defaults, result, log)
	}
	o.archiveBatch(ctx, report, result, log)

	result.Duration = time.Since(start)
	o.metrics.RecordBatch(true, result.Lanes)

	log.WithFields(logrus.Fields{
		"blocks":        result.Blocks,
		"dispatched":    result.Dispatched(),
		"decode_failed": result.DecodeFailed,
		"failed":        result.Failed,
		"lanes":         result.Lanes,
		"written":       report.Written(),
		"duration":      result.Duration,
	}).Info("Batch processed")
	return result, nil
}

// loadDefaults returns the protocol defaults for a new batch. The store
// wins; on error or without a store the last known value is used.
func (o *Orchestrator) loadDefaults(ctx context.Context, log logrus.FieldLogger) domain.ProtocolDefaults {
	if o.defaultsStore == nil {
		return o.defaults
	}
	d, err := o.defaultsStore.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return o.defaults
	}
	if err != nil {
		log.WithError(err).Warn("Failed to load protocol defaults, using last known values")
		return o.defaults
	}
	if d.UpdatedSlot < o.defaults.UpdatedSlot {
		return o.defaults
	}
	o.defaults = d
	return d
}

func (o *Orchestrator) saveDefaults(ctx context.Context, d domain.ProtocolDefaults, result *BatchResult, log logrus.FieldLogger) {
	o.defaults = d
	if o.defaultsStore == nil {
		return
	}
	if err := o.defaultsStore.Save(ctx, d); err != nil {
		log.WithError(err).Error("Failed to save protocol defaults")
		result.Errors = append(result.Errors, fmt.Sprintf("save defaults: %v", err))
		return
	}
	log.WithField("updated_slot", d.UpdatedSlot).Info("Protocol defaults saved")
}

// archiveBatch copies the batch's persisted append-only records to the archive.
// Archive failures never fail the batch.
func (o *Orchestrator) archiveBatch(ctx context.Context, report *cache.SetReport, result *BatchResult, log logrus.FieldLogger) {
	if o.archive == nil {
		return
	}
	phase := time.Now()
	defer func() { o.metrics.ObservePhase(PhaseArchive, time.Since(phase)) }()

	failed := make(map[string]struct{})
	for _, id := range report.Failed() {
		failed[id] = struct{}{}
	}

	trades := persisted(cache.KindTrade, o.caches.Trades.NewRecords(), failed)
	created := persisted(cache.KindTokenCreated, o.caches.TokenCreated.NewRecords(), failed)
	completed := persisted(cache.KindTokenCompleted, o.caches.TokenCompleted.NewRecords(), failed)

	err := errors.Join(
		o.archive.ArchiveTrades(ctx, trades),
		o.archive.ArchiveLifecycle(ctx, created, completed),
	)
	if err != nil {
		o.metrics.RecordArchiveError()
		log.WithError(err).Warn("Failed to archive batch")
		result.Errors = append(result.Errors, fmt.Sprintf("archive: %v", err))
	}
}

func persisted[T domain.Entity[T]](kind string, recs []T, failed map[string]struct{}) []T {
	out := recs[:0:0]
	for _, r := range recs {
		if _, ok := failed[kind+"/"+r.EntityID()]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// dispatch runs every item through the services. Lanes run concurrently
// when workers > 1 and no item mutates batch-wide state. Only context
// cancellation is returned as an error.
func (o *Orchestrator) dispatch(ctx context.Context, items []*item, defaults *domain.ProtocolDefaults, stats *service.Stats, log logrus.FieldLogger) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	if o.workers <= 1 || needsSerial(items) {
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return 1, err
			}
			o.dispatchOne(ctx, it, defaults, stats, log)
		}
		return 1, nil
	}

	lanes := partition(items)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, lane := range lanes {
		g.Go(func() error {
			for _, it := range lane {
				if err := gctx.Err(); err != nil {
					return err
				}
				o.dispatchOne(gctx, it, defaults, stats, log)
			}
			return nil
		})
	}
	return len(lanes), g.Wait()
}

// dispatchOne decodes and applies one item. Failures stop here.
func (o *Orchestrator) dispatchOne(ctx context.Context, it *item, defaults *domain.ProtocolDefaults, stats *service.Stats, log logrus.FieldLogger) {
	ixLog := log.WithFields(logrus.Fields{
		"slot":      it.slot,
		"signature": it.signature,
	})

	ix, err := o.registry.DecodeInstruction(it.raw.Data, it.raw.Accounts)
	if err != nil {
		it.outcome = outcomeDecodeFailed
		o.metrics.RecordDecodeError()
		if d, ok := codec.PeekDiscriminator(it.raw.Data); ok {
			ixLog = ixLog.WithField("discriminator", d.String())
		}
		ixLog.WithError(err).Debug("Failed to decode instruction")
		return
	}
	if !o.services.Handles(ix.Name) {
		it.outcome = outcomeSkipped
		return
	}

	ic := &service.InstructionContext{
		Instruction: ix,
		Raw:         &it.raw,
		Signature:   it.signature,
		Slot:        it.slot,
		Timestamp:   it.timestamp,
		Sequence:    it.sequence,
		Defaults:    defaults,
	}
	if err := o.process(ctx, ic, stats); err != nil {
		it.outcome = outcomeFailed
		o.metrics.RecordInstruction(ix.Name, true)
		ixLog.WithFields(logrus.Fields{
			"discriminator": ix.Discriminator.String(),
			"kind":          ix.Name,
		}).WithError(err).Error("Failed to process instruction")
		return
	}
	it.outcome = outcomeDispatched
	it.name = ix.Name
	o.metrics.RecordInstruction(ix.Name, false)
}

func (o *Orchestrator) process(ctx context.Context, ic *service.InstructionContext, stats *service.Stats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return o.services.Process(ctx, ic, stats)
}

func (o *Orchestrator) tally(items []*item, result *BatchResult) {
	for _, it := range items {
		switch it.outcome {
		case outcomeDispatched:
			result.Instructions[it.name]++
		case outcomeSkipped:
			result.Skipped++
		case outcomeDecodeFailed:
			result.DecodeFailed++
		case outcomeFailed:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s slot %d: instruction failed", it.signature, it.slot))
		}
	}
}
