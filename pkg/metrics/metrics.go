// Package metrics defines the Prometheus collectors recorded by a batch run
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the batch.
type Metrics struct {
	ItemsProcessedTotal   prometheus.Counter
	ItemsLoadedTotal      *prometheus.CounterVec
	ComputeDuration       prometheus.Histogram
	StageDuration         *prometheus.HistogramVec
	PlaceholderSlotsTotal prometheus.Counter
	DistinctTags          prometheus.Gauge
	SinkWritesTotal       *prometheus.CounterVec
	RunsTotal             *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "related_items_processed_total",
				Help: "Total items for which related items were computed.",
			},
		),
		ItemsLoadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "related_items_loaded_total",
				Help: "Total items loaded by source.",
			},
			[]string{"source"},
		),
		ComputeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "related_compute_duration_seconds",
				Help:    "Time spent computing related items, excluding I/O.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "related_stage_duration_seconds",
				Help:    "Duration of each batch stage (load, compute, write).",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		PlaceholderSlotsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "related_placeholder_slots_total",
				Help: "Related slots left holding a zero-count placeholder.",
			},
		),
		DistinctTags: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "related_distinct_tags",
				Help: "Distinct tags in the last batch.",
			},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "related_sink_writes_total",
				Help: "Sink writes by sink and status (ok, error).",
			},
			[]string{"sink", "status"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "related_runs_total",
				Help: "Batch runs by status (ok, error).",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.ItemsProcessedTotal,
		m.ItemsLoadedTotal,
		m.ComputeDuration,
		m.StageDuration,
		m.PlaceholderSlotsTotal,
		m.DistinctTags,
		m.SinkWritesTotal,
		m.RunsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
