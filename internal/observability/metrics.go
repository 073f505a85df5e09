package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// gridding pipeline.
type Metrics struct {
	StationsLoaded     prometheus.Gauge
	StationsExcluded   *prometheus.CounterVec // labels: reason={coordinates,empty_record,no_baseline}
	ObservationsNulled prometheus.Counter

	CellsCovered prometheus.Gauge
	CellsEmpty   prometheus.Gauge

	UrbanAdjusted   prometheus.Gauge
	UrbanUnadjusted prometheus.Gauge

	PhaseDuration *prometheus.HistogramVec // labels: phase={clean,anomaly,urban,weights,combine,write}
	RunDuration   prometheus.Histogram
	RunsTotal     *prometheus.CounterVec // labels: outcome={success,error}
	RunActive     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StationsLoaded,
		m.StationsExcluded,
		m.ObservationsNulled,
		m.CellsCovered,
		m.CellsEmpty,
		m.UrbanAdjusted,
		m.UrbanUnadjusted,
		m.PhaseDuration,
		m.RunDuration,
		m.RunsTotal,
		m.RunActive,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridtemp",
			Name:      "stations_loaded",
			Help:      "Stations read from the input table in the latest run.",
		}),
		StationsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridtemp",
			Name:      "stations_excluded_total",
			Help:      "Stations excluded from combination by reason.",
		}, []string{"reason"}),
		ObservationsNulled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtemp",
			Name:      "observations_nulled_total",
			Help:      "Monthly observations nulled by drop rules and coverage filters.",
		}),
		CellsCovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridtemp",
			Name:      "cells_covered",
			Help:      "Grid cells with at least one contributing station in the latest run.",
		}),
		CellsEmpty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridtemp",
			Name:      "cells_empty",
			Help:      "Grid cells with no station inside the search radius in the latest run.",
		}),
		UrbanAdjusted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridtemp",
			Name:      "urban_stations_adjusted",
			Help:      "Urban stations trend-adjusted against a rural composite in the latest run.",
		}),
		UrbanUnadjusted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridtemp",
			Name:      "urban_stations_unadjusted",
			Help:      "Urban stations passed through without references in the latest run.",
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridtemp",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each pipeline phase.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"phase"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridtemp",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete gridding run.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900, 3600},
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridtemp",
			Name:      "runs_total",
			Help:      "Completed runs by outcome.",
		}, []string{"outcome"}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridtemp",
			Name:      "run_active",
			Help:      "1 while a gridding run is in progress.",
		}),
	}
}
