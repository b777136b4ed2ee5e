// Package cache holds per-batch entity state between dispatch and flush.
//
// Every entity touched by a batch lives in exactly one of two maps:
// pendingNew (not known to exist in storage) or pendingExisting (loaded
// from storage). Flush writes each tracked record at most once: new records
// through Upsert, modified existing records through Update.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// Chunk size bounds for flush and prefetch.
const (
	DefaultChunkSize = 1000
	MaxChunkSize     = 2000
)

// Options configures every cache in a Set.
type Options struct {
	// ChunkSize is the number of records per storage call. Clamped to [1, MaxChunkSize].
	ChunkSize int
	// StoreFallback lets Find consult storage on a cache miss.
	StoreFallback bool
	Logger        logrus.FieldLogger
	// OnFlush, when set, is called after each kind is flushed.
	OnFlush func(report FlushReport, elapsed time.Duration)
}

func (o Options) chunkSize() int {
	switch {
	case o.ChunkSize <= 0:
		return DefaultChunkSize
	case o.ChunkSize > MaxChunkSize:
		return MaxChunkSize
	}
	return o.ChunkSize
}

// FlushReport summarizes one kind's flush.
type FlushReport struct {
	Kind     string
	Inserted int // records written through Upsert
	Updated  int // records written through Update
	Retried  int // records that succeeded after sanitization
	Failed   []string
}

// Written returns the number of records persisted.
func (r FlushReport) Written() int {
	return r.Inserted + r.Updated
}

// EntityCache tracks one entity kind for the duration of a batch.
// It is safe for concurrent use.
type EntityCache[T domain.Entity[T]] struct {
	kind      string
	store     storage.EntityStore[T]
	chunkSize int
	fallback  bool
	log       logrus.FieldLogger

	mu            sync.Mutex
	pendingNew    map[string]T
	newOrder      []string
	existing      map[string]T
	existingOrder []string
	dirty         map[string]struct{}
}

// NewEntityCache creates an empty cache for kind over store.
func NewEntityCache[T domain.Entity[T]](kind string, store storage.EntityStore[T], opts Options) *EntityCache[T] {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &EntityCache[T]{
		kind:      kind,
		store:     store,
		chunkSize: opts.chunkSize(),
		fallback:  opts.StoreFallback,
		log:       log.WithFields(logrus.Fields{"component": "cache", "kind": kind}),
	}
	c.Reset()
	return c
}

// Kind returns the entity kind name.
func (c *EntityCache[T]) Kind() string {
	return c.kind
}

// Reset drops all tracked state.
func (c *EntityCache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pendingNew = make(map[string]T)
	c.newOrder = nil
	c.existing = make(map[string]T)
	c.existingOrder = nil
	c.dirty = make(map[string]struct{})
}

// Find returns a copy of the tracked record for id. Lookup order is
// pendingExisting, pendingNew, then storage when fallback is enabled; a
// storage hit becomes pendingExisting.
func (c *EntityCache[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T

	c.mu.Lock()
	if rec, ok := c.lookup(id); ok {
		c.mu.Unlock()
		return rec.Clone(), true, nil
	}
	fallback := c.fallback
	c.mu.Unlock()

	if !fallback {
		return zero, false, nil
	}

	rec, err := c.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("find %s %s: %w", c.kind, id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tracked, ok := c.lookup(id); ok {
		return tracked.Clone(), true, nil
	}
	c.trackExisting(rec)
	return rec.Clone(), true, nil
}

func (c *EntityCache[T]) lookup(id string) (T, bool) {
	if rec, ok := c.existing[id]; ok {
		return rec, true
	}
	rec, ok := c.pendingNew[id]
	return rec, ok
}

func (c *EntityCache[T]) trackExisting(rec T) {
	id := rec.EntityID()
	c.existing[id] = rec
	c.existingOrder = append(c.existingOrder, id)
}

// Save records the latest state of rec. No storage round trip.
func (c *EntityCache[T]) Save(rec T) {
	id := rec.EntityID()
	cp := rec.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.existing[id]; ok {
		c.existing[id] = cp
		c.dirty[id] = struct{}{}
		return
	}
	if _, ok := c.pendingNew[id]; !ok {
		c.newOrder = append(c.newOrder, id)
	}
	c.pendingNew[id] = cp
}

// Prefetch loads ids from storage in chunks, seeding pendingExisting.
// Ids already tracked are skipped.
func (c *EntityCache[T]) Prefetch(ctx context.Context, ids []string) (int, error) {
	c.mu.Lock()
	wanted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, tracked := c.lookup(id); !tracked {
			wanted = append(wanted, id)
		}
	}
	c.mu.Unlock()

	loaded := 0
	for start := 0; start < len(wanted); start += c.chunkSize {
		end := min(start+c.chunkSize, len(wanted))

		recs, err := c.store.FindByIDs(ctx, wanted[start:end])
		if err != nil {
			return loaded, fmt.Errorf("prefetch %s: %w", c.kind, err)
		}

		c.mu.Lock()
		for _, rec := range recs {
			if _, tracked := c.lookup(rec.EntityID()); tracked {
				continue
			}
			c.trackExisting(rec)
			loaded++
		}
		c.mu.Unlock()
	}
	return loaded, nil
}

// Len returns the number of tracked records.
func (c *EntityCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pendingNew) + len(c.existing)
}

// NewRecords returns copies of pendingNew records in first-save order.
func (c *EntityCache[T]) NewRecords() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(c.newOrder, c.pendingNew, nil)
}

func (c *EntityCache[T]) snapshot(order []string, from map[string]T, only map[string]struct{}) []T {
	out := make([]T, 0, len(order))
	for _, id := range order {
		if only != nil {
			if _, ok := only[id]; !ok {
				continue
			}
		}
		out = append(out, from[id].Clone())
	}
	return out
}

// Flush writes pendingNew through Upsert, then modified pendingExisting
// through Update, each in chunks. A failed chunk is retried record by
// record; a record rejected with ErrConstraintViolation is retried once in
// sanitized form. ErrStorageUnavailable aborts the flush.
func (c *EntityCache[T]) Flush(ctx context.Context) (FlushReport, error) {
	c.mu.Lock()
	newRecs := c.snapshot(c.newOrder, c.pendingNew, nil)
	updated := c.snapshot(c.existingOrder, c.existing, c.dirty)
	c.mu.Unlock()

	report := FlushReport{Kind: c.kind}

	n, err := c.writeAll(ctx, "upsert", c.store.Upsert, newRecs, &report)
	report.Inserted = n
	if err != nil {
		return report, err
	}

	n, err = c.writeAll(ctx, "update", c.store.Update, updated, &report)
	report.Updated = n
	return report, err
}

type writeFunc[T any] func(ctx context.Context, records []T) error

func (c *EntityCache[T]) writeAll(ctx context.Context, op string, write writeFunc[T], recs []T, report *FlushReport) (int, error) {
	written := 0
	for start := 0; start < len(recs); start += c.chunkSize {
		end := min(start+c.chunkSize, len(recs))
		chunk := recs[start:end]

		err := write(ctx, chunk)
		if err == nil {
			written += len(chunk)
			continue
		}
		if isFatal(err) {
			return written, fmt.Errorf("flush %s: %s chunk: %w", c.kind, op, err)
		}

		c.log.WithError(err).WithFields(logrus.Fields{
			"op":   op,
			"size": len(chunk),
		}).Warn("chunk write failed, falling back to per-record writes")

		for _, rec := range chunk {
			ok, err := c.writeOne(ctx, op, write, rec, report)
			if err != nil {
				return written, err
			}
			if ok {
				written++
			}
		}
	}
	return written, nil
}

func (c *EntityCache[T]) writeOne(ctx context.Context, op string, write writeFunc[T], rec T, report *FlushReport) (bool, error) {
	id := rec.EntityID()

	err := write(ctx, []T{rec})
	if err == nil {
		return true, nil
	}
	if isFatal(err) {
		return false, fmt.Errorf("flush %s: %s %s: %w", c.kind, op, id, err)
	}

	if errors.Is(err, storage.ErrConstraintViolation) {
		if s, ok := any(rec).(domain.Sanitizable[T]); ok {
			retryErr := write(ctx, []T{s.Sanitized()})
			if retryErr == nil {
				report.Retried++
				c.log.WithError(err).WithField("id", id).Info("record written after sanitization")
				return true, nil
			}
			if isFatal(retryErr) {
				return false, fmt.Errorf("flush %s: %s %s: %w", c.kind, op, id, retryErr)
			}
			err = retryErr
		}
	}

	report.Failed = append(report.Failed, id)
	c.log.WithError(err).WithFields(logrus.Fields{"op": op, "id": id}).Error("record write failed")
	return false, nil
}

func isFatal(err error) bool {
	return errors.Is(err, storage.ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
