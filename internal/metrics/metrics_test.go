package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveBatch(time.Now(), 1, 0, nil)
	m.ObserveSearch(time.Now(), 1, nil)
	m.QueryCacheHit(true)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["docsearch_documents_indexed_total"])
	assert.True(t, names["docsearch_searches_total"])
	assert.True(t, names["docsearch_query_cache_total"])
}

func TestMetrics_ObserveBatch(t *testing.T) {
	m := New(nil)

	m.ObserveBatch(time.Now(), 3, 1, nil)
	m.ObserveBatch(time.Now(), 1, 0, errors.New("disk full"))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.DocumentsIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntriesReplaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBatches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBatches.WithLabelValues("error")))
}

func TestMetrics_ObserveSearch(t *testing.T) {
	m := New(nil)

	m.ObserveSearch(time.Now(), 2, nil)
	m.ObserveSearch(time.Now(), 0, errors.New("parse"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchResults))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBatch(time.Now(), 1, 1, nil)
		m.ObserveSearch(time.Now(), 1, nil)
		m.QueryCacheHit(false)
	})
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search?q=x", http.NoBody))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/search", "400")))
}
