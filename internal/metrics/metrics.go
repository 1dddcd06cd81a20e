// Package metrics holds the Prometheus collectors for store operations and
// searches. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Store metrics
	Operations *prometheus.CounterVec
	Files      prometheus.Gauge
	Dirs       prometheus.Gauge
	Events     *prometheus.CounterVec

	// Search metrics
	Searches       *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec
	SearchResults  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memvfs_store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"op", "result"},
		),
		Files: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memvfs_store_files",
				Help: "Number of files held by the store",
			},
		),
		Dirs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memvfs_store_directories",
				Help: "Number of directories held by the store",
			},
		),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memvfs_store_events_total",
				Help: "Total number of change events emitted",
			},
			[]string{"type"},
		),

		Searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memvfs_searches_total",
				Help: "Total number of searches by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memvfs_search_duration_seconds",
				Help:    "Search duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
		SearchResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memvfs_search_results_total",
				Help: "Total number of results reported by searches",
			},
			[]string{"kind"},
		),
	}
}

// Registry returns the registry the collectors live in, for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordOperation counts one store operation. result is "ok" or the error kind.
func (m *Metrics) RecordOperation(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// SetEntries updates the entry gauges.
func (m *Metrics) SetEntries(files, dirs int) {
	if m == nil {
		return
	}
	m.Files.Set(float64(files))
	m.Dirs.Set(float64(dirs))
}

// RecordEvent counts one emitted change event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType).Inc()
}

// RecordSearch records a finished search. outcome is "complete", "limit",
// "cancelled" or "error".
func (m *Metrics) RecordSearch(kind, outcome string, results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(kind, outcome).Inc()
	m.SearchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.SearchResults.WithLabelValues(kind).Add(float64(results))
}
