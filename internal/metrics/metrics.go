// Package metrics exposes Prometheus collectors for the vacancy crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record statuses reported by ObserveRecord.
const (
	RecordWritten         = "written"
	RecordSalaryMalformed = "salary_malformed"
	RecordSkipped         = "skipped"
)

var (
	listingScrollsTotal        prometheus.Counter
	linksDiscoveredTotal       prometheus.Counter
	fetchesTotal               *prometheus.CounterVec
	fetchDurationSeconds       prometheus.Histogram
	recordsTotal               *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	courtesyDelaySeconds       prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		listingScrollsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vacancy_crawler_listing_scrolls_total",
			Help: "Total number of scrolls performed on the listing page.",
		})

		linksDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vacancy_crawler_links_discovered_total",
			Help: "Total number of new vacancy detail links discovered.",
		})

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_crawler_fetches_total",
				Help: "Total number of detail page fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vacancy_crawler_fetch_duration_seconds",
			Help:    "Histogram of detail page fetch latencies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		})

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vacancy_crawler_records_total",
				Help: "Total number of vacancy records processed, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vacancy_crawler_active_workers",
			Help: "Number of workers currently fetching a detail page.",
		})

		courtesyDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vacancy_crawler_courtesy_delay_seconds",
			Help:    "Histogram of courtesy waits before detail fetches.",
			Buckets: []float64{0.1, 0.5, 1, 2, 3, 4, 5, 10},
		})

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveScroll counts one listing page scroll.
func ObserveScroll() {
	Init()
	listingScrollsTotal.Inc()
}

// ObserveLinksDiscovered adds n newly discovered detail links.
func ObserveLinksDiscovered(n int) {
	Init()
	if n > 0 {
		linksDiscoveredTotal.Add(float64(n))
	}
}

// ObserveFetch records a detail page fetch outcome and its latency.
func ObserveFetch(outcome string, duration time.Duration) {
	Init()
	fetchesTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveRecord counts a processed vacancy by status.
func ObserveRecord(status string) {
	Init()
	recordsTotal.WithLabelValues(status).Inc()
}

// ObserveCourtesyDelay records how long a worker waited before fetching.
func ObserveCourtesyDelay(d time.Duration) {
	Init()
	courtesyDelaySeconds.Observe(d.Seconds())
}

func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
