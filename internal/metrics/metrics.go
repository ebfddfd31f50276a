// Package metrics holds the collector's Prometheus instruments.
//
// The collector is a batch job, so nothing is served over HTTP: after a
// run the registry can be dumped to a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry every instrument in this package belongs to
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Upstream API
	UpstreamRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narubooks_upstream_requests_total",
			Help: "Upstream API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, retryable, non_retryable, rate_limited, decode_error
	)

	BreakerTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narubooks_circuit_breaker_transitions_total",
			Help: "Circuit breaker transitions by target state",
		},
		[]string{"state"},
	)

	// Collection
	PagesFetched = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narubooks_pages_fetched_total",
			Help: "Pages fetched by the pagination walker",
		},
		[]string{"target"}, // libraries, items, popular
	)

	LibrariesProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narubooks_libraries_processed_total",
			Help: "Libraries processed by result",
		},
		[]string{"result"}, // ok, partial, failed
	)

	BooksCollected = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "narubooks_books_collected_total",
			Help: "Book records collected before deduplication",
		},
	)

	BooksUnique = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "narubooks_books_unique",
			Help: "Unique books in the last written snapshot",
		},
	)

	DuplicatesRemoved = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "narubooks_duplicates_removed",
			Help: "Duplicate records dropped in the last run",
		},
	)

	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "narubooks_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	RunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "narubooks_last_run_duration_seconds",
			Help: "Wall time of the last run",
		},
	)
)

// WriteTextfile writes the registry in text exposition format to path
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, Registry)
}
