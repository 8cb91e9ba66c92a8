// Package metrics exposes Prometheus instrumentation for table mutations,
// the query cache, searches, imports and the change feed.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/fastro/internal/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fastro"

// Metrics holds the application collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  *prometheus.GaugeVec
	imports   *prometheus.CounterVec
	searches  *prometheus.CounterVec
	changes   *prometheus.CounterVec

	active atomic.Int64
}

// New creates the collectors and registers them with a fresh registry
// alongside the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Backend mutations by table, operation and result.",
		}, []string{"table", "op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Backend mutation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mutations_in_flight",
			Help:      "Backend mutations currently running.",
		}, []string{"table"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "CSV imports by table and result.",
		}, []string{"table", "result"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Rich searches by table and whether the result was used or discarded as stale.",
		}, []string{"table", "result"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_notifications_total",
			Help:      "Change feed notifications by table.",
		}, []string{"table"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.mutations, m.duration, m.inFlight, m.imports, m.searches, m.changes,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Start records the beginning of a mutation. The returned func records its
// outcome and latency.
func (m *Metrics) Start(table, op string) func(error) {
	start := time.Now()
	m.active.Add(1)
	m.inFlight.WithLabelValues(table).Inc()

	return func(err error) {
		m.active.Add(-1)
		m.inFlight.WithLabelValues(table).Dec()
		m.duration.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
		m.mutations.WithLabelValues(table, op, result(err)).Inc()
	}
}

// Active returns the number of mutations in flight across all tables.
func (m *Metrics) Active() int64 {
	return m.active.Load()
}

// Import records the outcome of a CSV import.
func (m *Metrics) Import(table string, err error) {
	m.imports.WithLabelValues(table, result(err)).Inc()
}

// Search records a completed search; stale results were discarded.
func (m *Metrics) Search(table string, stale bool) {
	r := "used"
	if stale {
		r = "stale"
	}
	m.searches.WithLabelValues(table, r).Inc()
}

// Change records a change feed notification.
func (m *Metrics) Change(table string) {
	m.changes.WithLabelValues(table).Inc()
}

// WatchCache exposes the cache's hit, miss and entry counts.
func (m *Metrics) WatchCache(c *cache.Cache) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Query cache hits.",
		}, func() float64 { return float64(c.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Query cache misses.",
		}, func() float64 { return float64(c.Stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Query cache entries.",
		}, func() float64 { return float64(c.Stats().Entries) }),
	)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
