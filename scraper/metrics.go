package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a sync run.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	BooksTotal      *prometheus.CounterVec
	PagesTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libsync_requests_total",
			Help: "Total HTTP requests issued against the catalog.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "libsync_request_duration_seconds",
			Help:    "Catalog request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	books := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libsync_books_total",
			Help: "Books processed, by outcome.",
		},
		[]string{"outcome"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libsync_pages_total",
			Help: "Listing pages processed, by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(requests, requestDuration, books, pages)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		BooksTotal:      books,
		PagesTotal:      pages,
	}
}

// IncRequest increments the requests counter for a fetch phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records one catalog request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncBook increments the book outcome counter.
func (m *Metrics) IncBook(outcome string) {
	if m == nil {
		return
	}
	m.BooksTotal.WithLabelValues(outcome).Inc()
}

// IncPage increments the page result counter.
func (m *Metrics) IncPage(result string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(result).Inc()
}
