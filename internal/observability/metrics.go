// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/service"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "bonding_curve_indexer"

// Metrics holds all Prometheus metrics for the indexer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ingestion metrics
	BlocksFetched     prometheus.Counter
	SlotsSkipped      prometheus.Counter
	HeadSlot          prometheus.Gauge
	LastFlushedSlot   prometheus.Gauge
	RPCCallLatency    *prometheus.HistogramVec
	RPCCallErrors     *prometheus.CounterVec
	SlotNotifications prometheus.Counter

	// Dispatch metrics
	InstructionsDispatched *prometheus.CounterVec
	InstructionsFailed     *prometheus.CounterVec
	DecodeErrors           prometheus.Counter
	ServiceEvents          *prometheus.CounterVec

	// Batch metrics
	BatchesTotal  *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
	BatchLanes    prometheus.Histogram

	// Flush metrics
	FlushDuration  *prometheus.HistogramVec
	RecordsWritten *prometheus.CounterVec
	RecordsRetried *prometheus.CounterVec
	RecordsFailed  *prometheus.CounterVec

	// Archive metrics
	ArchiveErrors prometheus.Counter

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		BlocksFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "blocks_fetched_total",
			Help:      "Total number of blocks fetched from RPC",
		}),
		SlotsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "slots_skipped_total",
			Help:      "Total number of slots without a block",
		}),
		HeadSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "head_slot",
			Help:      "Latest chain slot observed",
		}),
		LastFlushedSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "last_flushed_slot",
			Help:      "Highest slot whose batch was flushed",
		}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		SlotNotifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "slot_notifications_total",
			Help:      "Total number of slot notifications received",
		}),

		// Dispatch metrics
		InstructionsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "instructions_total",
			Help:      "Total number of protocol instructions dispatched by kind",
		}, []string{"kind"}),
		InstructionsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "instruction_errors_total",
			Help:      "Total number of instructions whose handler failed, by kind",
		}, []string{"kind"}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "decode_errors_total",
			Help:      "Total number of program instructions that failed to decode",
		}),
		ServiceEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "service_events_total",
			Help:      "Domain service outcomes by event",
		}, []string{"event"}),

		// Batch metrics
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total number of batches by status",
		}, []string{"status"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch phase duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"phase"}),
		BatchLanes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "lanes",
			Help:      "Number of independent dispatch lanes per batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),

		// Flush metrics
		FlushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "flush_duration_seconds",
			Help:      "Flush duration per entity kind in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		RecordsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "records_written_total",
			Help:      "Total number of records persisted by kind and operation",
		}, []string{"kind", "op"}),
		RecordsRetried: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "records_retried_total",
			Help:      "Total number of records persisted after sanitization",
		}, []string{"kind"}),
		RecordsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "records_failed_total",
			Help:      "Total number of records that could not be persisted",
		}, []string{"kind"}),

		// Archive metrics
		ArchiveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of failed archive writes",
		}),

		// Health metrics
		LastSuccessfulBatch: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last successful batch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving gatherer.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordInstruction counts one dispatched instruction.
func (m *Metrics) RecordInstruction(kind string, failed bool) {
	if m == nil {
		return
	}
	m.InstructionsDispatched.WithLabelValues(kind).Inc()
	if failed {
		m.InstructionsFailed.WithLabelValues(kind).Inc()
	}
}

// RecordDecodeError counts one undecodable program instruction.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

// RecordServiceStats adds one batch's service counters.
func (m *Metrics) RecordServiceStats(s service.StatsSnapshot) {
	if m == nil {
		return
	}
	add := func(event string, n int64) {
		if n > 0 {
			m.ServiceEvents.WithLabelValues(event).Add(float64(n))
		}
	}
	add("global_update", s.GlobalUpdates)
	add("defaults_changed", s.DefaultsChanged)
	add("token_created", s.TokensCreated)
	add("placeholder_created", s.PlaceholdersCreated)
	add("curve_synthesized", s.CurvesSynthesized)
	add("trade_recorded", s.TradesRecorded)
	add("trade_without_event", s.TradesWithoutEvent)
	add("token_completed", s.TokensCompleted)
	add("missing_reference", s.MissingReferences)
}

// ObserveFlush records one kind's flush. Its signature matches cache.Options.OnFlush.
func (m *Metrics) ObserveFlush(report cache.FlushReport, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FlushDuration.WithLabelValues(report.Kind).Observe(elapsed.Seconds())
	m.RecordsWritten.WithLabelValues(report.Kind, "upsert").Add(float64(report.Inserted))
	m.RecordsWritten.WithLabelValues(report.Kind, "update").Add(float64(report.Updated))
	m.RecordsRetried.WithLabelValues(report.Kind).Add(float64(report.Retried))
	m.RecordsFailed.WithLabelValues(report.Kind).Add(float64(len(report.Failed)))
}

// ObservePhase records the duration of one batch phase.
func (m *Metrics) ObservePhase(phase string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}

// RecordBatch counts a finished batch.
func (m *Metrics) RecordBatch(ok bool, lanes int) {
	if m == nil {
		return
	}
	if !ok {
		m.BatchesTotal.WithLabelValues("failed").Inc()
		return
	}
	m.BatchesTotal.WithLabelValues("ok").Inc()
	m.BatchLanes.Observe(float64(lanes))
	m.LastSuccessfulBatch.SetToCurrentTime()
}

// RecordArchiveError counts a failed archive write.
func (m *Metrics) RecordArchiveError() {
	if m == nil {
		return
	}
	m.ArchiveErrors.Inc()
}

// ObserveRPC records one RPC call. Its signature matches solana.CallObserver.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordBlock counts a fetched block, or a skipped slot.
func (m *Metrics) RecordBlock(skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.SlotsSkipped.Inc()
		return
	}
	m.BlocksFetched.Inc()
}

// SetHeadSlot updates the chain head gauge.
func (m *Metrics) SetHeadSlot(slot uint64) {
	if m == nil {
		return
	}
	m.HeadSlot.Set(float64(slot))
}

// SetLastFlushedSlot updates the progress gauge.
func (m *Metrics) SetLastFlushedSlot(slot uint64) {
	if m == nil {
		return
	}
	m.LastFlushedSlot.Set(float64(slot))
}

// RecordSlotNotification counts one WebSocket slot notification.
func (m *Metrics) RecordSlotNotification() {
	if m == nil {
		return
	}
	m.SlotNotifications.Inc()
}
