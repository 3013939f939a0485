// Package metrics holds the Prometheus collectors for indexing and search.
//
// All methods are safe on a nil *Metrics so components can be built
// without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docsearch"

// Metrics groups the docsearch collectors.
type Metrics struct {
	DocumentsIndexed prometheus.Counter
	EntriesReplaced  prometheus.Counter
	IndexBatches     *prometheus.CounterVec
	IndexDuration    prometheus.Histogram
	SearchesTotal    *prometheus.CounterVec
	SearchDuration   prometheus.Histogram
	SearchResults    prometheus.Histogram
	QueryCache       *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_indexed_total",
			Help:      "Total number of documents added to the index",
		}),
		EntriesReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_replaced_total",
			Help:      "Total number of entries deleted because a document with the same identifier was re-indexed",
		}),
		IndexBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_batches_total",
			Help:      "Total number of index batches",
		}, []string{"status"}),
		IndexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_batch_duration_seconds",
			Help:      "Index batch duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}),
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches",
		}, []string{"status"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results delivered per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500},
		}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Parsed query cache hits and misses",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path", "status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.DocumentsIndexed,
			m.EntriesReplaced,
			m.IndexBatches,
			m.IndexDuration,
			m.SearchesTotal,
			m.SearchDuration,
			m.SearchResults,
			m.QueryCache,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveBatch records one index batch.
func (m *Metrics) ObserveBatch(start time.Time, indexed, replaced int, err error) {
	if m == nil {
		return
	}
	m.IndexBatches.WithLabelValues(status(err)).Inc()
	m.IndexDuration.Observe(time.Since(start).Seconds())
	m.DocumentsIndexed.Add(float64(indexed))
	m.EntriesReplaced.Add(float64(replaced))
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(start time.Time, results int, err error) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(status(err)).Inc()
	m.SearchDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		m.SearchResults.Observe(float64(results))
	}
}

// QueryCacheHit records a parsed-query cache lookup.
func (m *Metrics) QueryCacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.QueryCache.WithLabelValues("hit").Inc()
		return
	}
	m.QueryCache.WithLabelValues("miss").Inc()
}
