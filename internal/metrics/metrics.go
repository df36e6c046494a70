// Package metrics exposes Prometheus collectors for the feed scraper.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	feedPagesTotal         *prometheus.CounterVec
	feedProductsTotal      *prometheus.CounterVec
	feedRetriesTotal       prometheus.Counter
	feedUploadsTotal       *prometheus.CounterVec
	feedScrapeDurationSecs prometheus.Histogram
	feedActiveWorkers      prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		feedPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_pages_total",
				Help: "Total number of pages fetched, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		feedProductsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_products_total",
				Help: "Total number of product scrape attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		feedRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "feed_retries_total",
				Help: "Total number of product URLs re-queued for retry.",
			},
		)

		feedUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_uploads_total",
				Help: "Total number of SFTP feed uploads, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		feedScrapeDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "feed_scrape_duration_seconds",
				Help:    "Histogram of end-to-end scrape run durations.",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1800},
			},
		)

		feedActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "feed_active_workers",
				Help: "Number of workers currently scraping a product.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page fetch counter for a pipeline stage.
func ObservePage(stage, outcome string) {
	Init()
	feedPagesTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveProduct increments the product scrape counter.
func ObserveProduct(outcome string) {
	Init()
	feedProductsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRetry counts one URL queued for a retry round.
func ObserveRetry() {
	Init()
	feedRetriesTotal.Inc()
}

// ObserveUpload increments the SFTP upload counter.
func ObserveUpload(outcome string) {
	Init()
	feedUploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveScrapeDuration records the duration of a full scrape run.
func ObserveScrapeDuration(d time.Duration) {
	Init()
	feedScrapeDurationSecs.Observe(d.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	feedActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	feedActiveWorkers.Dec()
}
