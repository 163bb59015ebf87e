package businessflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh runs partitioned by outcome: success, source_unavailable, error
	refreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "country_refresh_runs_total",
			Help: "Total number of country refresh runs",
		},
		[]string{"result"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "country_refresh_duration_seconds",
			Help:    "Duration of country refresh runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	countriesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "countries_stored",
			Help: "Number of countries stored after the last successful refresh or write",
		},
	)
)

func observeRefresh(err error, elapsed time.Duration) {
	result := "success"
	switch {
	case err == nil:
	case IsSourceUnavailable(err):
		result = "source_unavailable"
	default:
		result = "error"
	}
	refreshRunsTotal.WithLabelValues(result).Inc()
	refreshDuration.Observe(elapsed.Seconds())
}
