package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio_tracker"

// Metrics groups the collectors of the process on a private registry.
// All methods accept a nil receiver so components can run without metrics.
type Metrics struct {
	Registry *prometheus.Registry

	rpcRequests         *prometheus.CounterVec
	rpcDuration         *prometheus.HistogramVec
	priceLookups        *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	aggregationErrors   prometheus.Counter
	holdings            prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Outbound requests by kind (jsonrpc, batch, rest), host and outcome.",
		}, []string{"kind", "host", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_request_duration_seconds",
			Help:      "Latency of outbound requests including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		priceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_lookups_total",
			Help:      "Token price lookups by outcome (found, missing, stable, error).",
		}, []string{"outcome"}),
		aggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a full aggregation pass.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		aggregationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_entry_errors_total",
			Help:      "Per-entry errors collected into snapshots.",
		}),
		holdings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_holdings",
			Help:      "Holdings in the last snapshot.",
		}),
	}
	m.Registry.MustRegister(m.rpcRequests, m.rpcDuration, m.priceLookups,
		m.aggregationDuration, m.aggregationErrors, m.holdings)
	return m
}

// ObserveRequest records one outbound request.
func (m *Metrics) ObserveRequest(kind, host, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(kind, host, outcome).Inc()
	m.rpcDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// CountPrice records price lookup outcomes.
func (m *Metrics) CountPrice(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.priceLookups.WithLabelValues(outcome).Add(float64(n))
}

// PriceLookups exposes the lookup counter by outcome.
func (m *Metrics) PriceLookups() *prometheus.CounterVec {
	return m.priceLookups
}

// Holdings exposes the holdings gauge of the last pass.
func (m *Metrics) Holdings() prometheus.Gauge {
	return m.holdings
}

// ObserveAggregation records one finished pass.
func (m *Metrics) ObserveAggregation(took time.Duration, holdings, entryErrors int) {
	if m == nil {
		return
	}
	m.aggregationDuration.Observe(took.Seconds())
	m.aggregationErrors.Add(float64(entryErrors))
	m.holdings.Set(float64(holdings))
}
