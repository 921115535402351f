// Package metrics exposes Prometheus instrumentation for the scrape loop,
// fetchers, and simulate/checkpoint operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector NERVE registers. A single
// instance is created at startup and shared by the scraper, fetchers, and
// controller.
type Metrics struct {
	ScrapeCycleDuration *prometheus.HistogramVec
	FetcherErrors       *prometheus.CounterVec
	CacheRegionsTracked prometheus.Gauge
	SimulateTotal       *prometheus.CounterVec
	CheckpointEvents    *prometheus.CounterVec
}

// New builds and registers NERVE's collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScrapeCycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nerve_scrape_cycle_duration_seconds",
			Help:    "Duration of one region's scrape within a scrape loop cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"region"}),

		FetcherErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerve_fetcher_errors_total",
			Help: "Count of fetch failures by fetcher and region",
		}, []string{"fetcher", "region"}),

		CacheRegionsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nerve_cache_regions_tracked",
			Help: "Number of regions currently present in the cache",
		}),

		SimulateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerve_simulate_total",
			Help: "Count of simulate() calls by outcome",
		}, []string{"outcome"}),

		CheckpointEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerve_checkpoint_events_total",
			Help: "Count of checkpoint/eviction simulations by kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.ScrapeCycleDuration,
		m.FetcherErrors,
		m.CacheRegionsTracked,
		m.SimulateTotal,
		m.CheckpointEvents,
	)

	return m
}

// ObserveScrapeCycle records how long one region's scrape cycle took.
func (m *Metrics) ObserveScrapeCycle(region string, d time.Duration) {
	m.ScrapeCycleDuration.WithLabelValues(region).Observe(d.Seconds())
}

// RecordFetcherError increments the failure counter for fetcher/region.
func (m *Metrics) RecordFetcherError(fetcher, region string) {
	m.FetcherErrors.WithLabelValues(fetcher, region).Inc()
}

// RecordSimulate increments the simulate outcome counter ("ok" or "error").
func (m *Metrics) RecordSimulate(outcome string) {
	m.SimulateTotal.WithLabelValues(outcome).Inc()
}

// RecordCheckpointEvent increments the checkpoint/eviction counter.
func (m *Metrics) RecordCheckpointEvent(kind string) {
	m.CheckpointEvents.WithLabelValues(kind).Inc()
}
