// Package metrics exposes Prometheus collectors for crawl runs and the read API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item outcomes recorded by ItemProcessed.
const (
	ItemInserted  = "inserted"
	ItemDuplicate = "duplicate"
	ItemNoLink    = "no_link"
	ItemFailed    = "failed"
)

// Metrics groups the collectors registered on one registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pagesTotal       prometheus.Counter
	itemsTotal       *prometheus.CounterVec
	imagesTotal      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDurationSecs *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		pagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Total number of listing pages visited.",
		}),
		itemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_items_total",
			Help: "Total number of listing items processed, labeled by outcome.",
		}, []string{"outcome"}),
		imagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_images_total",
			Help: "Total number of image downloads, labeled by status.",
		}, []string{"status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpDurationSecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method"}),
	}
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PageVisited counts one listing page.
func (m *Metrics) PageVisited() {
	if m == nil {
		return
	}
	m.pagesTotal.Inc()
}

// ItemProcessed counts one listing item by outcome.
func (m *Metrics) ItemProcessed(outcome string) {
	if m == nil {
		return
	}
	m.itemsTotal.WithLabelValues(outcome).Inc()
}

// ImageFetched counts one image download attempt.
func (m *Metrics) ImageFetched(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.imagesTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDurationSecs.WithLabelValues(method).Observe(elapsed.Seconds())
}
