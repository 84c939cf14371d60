// Package metrics holds the Prometheus collectors of the service. Every
// method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	redirects       *prometheus.CounterVec
	linksCreated    *prometheus.CounterVec
	codeCollisions  prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	clicksRecorded  *prometheus.CounterVec
	clicksDispatch  *prometheus.CounterVec
	metadataFetches *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shortlink_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "Redirect resolutions by result",
		}, []string{"result"}),
		linksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_links_created_total",
			Help: "Links created by code kind (generated or alias)",
		}, []string{"kind"}),
		codeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortlink_code_collisions_total",
			Help: "Generated short codes that were already taken",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_cache_lookups_total",
			Help: "Resolution cache lookups by result",
		}, []string{"result"}),
		clicksRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_clicks_recorded_total",
			Help: "Click accounting outcomes",
		}, []string{"result"}),
		clicksDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_clicks_dispatched_total",
			Help: "Click dispatches by path (queued, overflow, published, failed)",
		}, []string{"path"}),
		metadataFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_metadata_fetches_total",
			Help: "Page metadata fetches by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.redirects,
		m.linksCreated,
		m.codeCollisions,
		m.cacheLookups,
		m.clicksRecorded,
		m.clicksDispatch,
		m.metadataFetches,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Redirect(result string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(result).Inc()
}

func (m *Metrics) LinkCreated(kind string) {
	if m == nil {
		return
	}
	m.linksCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) CodeCollision() {
	if m == nil {
		return
	}
	m.codeCollisions.Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ClickRecorded(result string) {
	if m == nil {
		return
	}
	m.clicksRecorded.WithLabelValues(result).Inc()
}

func (m *Metrics) ClickDispatched(path string) {
	if m == nil {
		return
	}
	m.clicksDispatch.WithLabelValues(path).Inc()
}

func (m *Metrics) MetadataFetch(result string) {
	if m == nil {
		return
	}
	m.metadataFetches.WithLabelValues(result).Inc()
}
