// Package metrics exposes cache and fetch counters on a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application metrics. A nil *Registry is valid and
// records nothing, so components can be wired without metrics in tests.
type Registry struct {
	reg *prometheus.Registry

	hits          prometheus.Counter
	misses        prometheus.Counter
	stale         prometheus.Counter
	empty         prometheus.Counter
	fetchFailures prometheus.Counter
	persistErrors prometheus.Counter
	fetchSeconds  prometheus.Histogram
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokodata_cache_hits_total"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokodata_cache_misses_total"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokodata_cache_stale_fallback_total"})
	empty := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokodata_cache_empty_results_total"})
	fetchFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokodata_fetch_failures_total"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "tokodata_cache_persist_errors_total"})
	fetchDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tokodata_fetch_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(hits, misses, stale, empty, fetchFail, persist, fetchDur)
	return &Registry{
		reg:           r,
		hits:          hits,
		misses:        misses,
		stale:         stale,
		empty:         empty,
		fetchFailures: fetchFail,
		persistErrors: persist,
		fetchSeconds:  fetchDur,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) CacheHit() {
	if r != nil {
		r.hits.Inc()
	}
}

func (r *Registry) CacheMiss() {
	if r != nil {
		r.misses.Inc()
	}
}

func (r *Registry) StaleFallback() {
	if r != nil {
		r.stale.Inc()
	}
}

func (r *Registry) EmptyResult() {
	if r != nil {
		r.empty.Inc()
	}
}

func (r *Registry) FetchFailure() {
	if r != nil {
		r.fetchFailures.Inc()
	}
}

func (r *Registry) PersistError() {
	if r != nil {
		r.persistErrors.Inc()
	}
}

// ObserveFetch records the duration of one source fetch.
func (r *Registry) ObserveFetch(d time.Duration) {
	if r != nil {
		r.fetchSeconds.Observe(d.Seconds())
	}
}
