// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidatesTotal      *prometheus.CounterVec
	searchPagesTotal     prometheus.Counter
	fetchDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knitcrawl_candidates_total",
				Help: "Total number of candidate URLs processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		searchPagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "knitcrawl_search_pages_total",
				Help: "Total number of search result pages scanned.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "knitcrawl_fetch_duration_seconds",
				Help:    "Histogram of post fetch latencies.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
		)
	})
}

// CandidateFinished increments the candidate counter for a terminal outcome.
func CandidateFinished(outcome string) {
	if candidatesTotal == nil {
		return
	}
	candidatesTotal.WithLabelValues(outcome).Inc()
}

// SearchPageScanned increments the scanned page counter.
func SearchPageScanned() {
	if searchPagesTotal == nil {
		return
	}
	searchPagesTotal.Inc()
}

// FetchObserved records the duration of one post fetch.
func FetchObserved(seconds float64) {
	if fetchDurationSeconds == nil {
		return
	}
	fetchDurationSeconds.Observe(seconds)
}
