package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.ObserveRequest("jsonrpc", "eth.example", "ok", 20*time.Millisecond)
	m.ObserveRequest("jsonrpc", "eth.example", "ok", 10*time.Millisecond)
	m.CountPrice("missing", 3)
	m.ObserveAggregation(time.Second, 7, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("jsonrpc", "eth.example", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.priceLookups.WithLabelValues("missing")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.holdings))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("rest", "h", "error", time.Millisecond)
		m.CountPrice("found", 1)
		m.ObserveAggregation(time.Second, 1, 0)
	})
}
