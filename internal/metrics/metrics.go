// Package metrics holds the Prometheus collectors exported on /metrics.
// Every method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	productsCreated        prometheus.Counter
	codeGenerationFailures prometheus.Counter
	archiveRuns            *prometheus.CounterVec
	eventsPublished        *prometheus.CounterVec
	cacheLookups           *prometheus.CounterVec
}

// New creates the collectors under namespace and registers them, along with
// the Go runtime and process collectors, on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		productsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_created_total",
			Help:      "Products created with a generated code.",
		}),
		codeGenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_generation_failures_total",
			Help:      "Product creations that could not allocate a code.",
		}),
		archiveRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_runs_total",
			Help:      "Archive scheduler ticks by outcome.",
		}, []string{"outcome"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events by type and result.",
		}, []string{"type", "result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_lookups_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.productsCreated,
		m.codeGenerationFailures,
		m.archiveRuns,
		m.eventsPublished,
		m.cacheLookups,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ProductCreated counts a successful product creation.
func (m *Metrics) ProductCreated() {
	if m == nil {
		return
	}
	m.productsCreated.Inc()
}

// CodeGenerationFailed counts a creation that lost the race for a code.
func (m *Metrics) CodeGenerationFailed() {
	if m == nil {
		return
	}
	m.codeGenerationFailures.Inc()
}

// ArchiveRun counts one scheduler tick.
func (m *Metrics) ArchiveRun(outcome string) {
	if m == nil {
		return
	}
	m.archiveRuns.WithLabelValues(outcome).Inc()
}

// EventPublished counts an event handed to the broker or dropped.
func (m *Metrics) EventPublished(eventType, result string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}

// CacheLookup counts a report cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
