package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/service"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInstruction("buy", true)
		m.RecordDecodeError()
		m.ObserveFlush(cache.FlushReport{Kind: "token"}, time.Second)
		m.RecordBatch(true, 3)
		m.ObserveRPC("getBlock", time.Millisecond, nil)
		m.SetHeadSlot(10)
	})
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordInstruction("buy", false)
	m.RecordInstruction("buy", true)
	m.RecordDecodeError()
	m.ObserveFlush(cache.FlushReport{Kind: "trade", Inserted: 3, Updated: 1, Retried: 1, Failed: []string{"x"}}, 10*time.Millisecond)
	m.ObserveRPC("getBlock", time.Millisecond, errors.New("boom"))
	m.RecordServiceStats(service.StatsSnapshot{TradesRecorded: 4})
	m.SetHeadSlot(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InstructionsDispatched.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstructionsFailed.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsWritten.WithLabelValues("trade", "upsert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsWritten.WithLabelValues("trade", "update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsFailed.WithLabelValues("trade")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("getBlock")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ServiceEvents.WithLabelValues("trade_recorded")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.HeadSlot))
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordBatch(true, 2)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_batch_runs_total{status="ok"} 1`))
}
