package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchpool_fetch_requests_total",
		Help: "Total fetches by result and error class",
	}, []string{"result", "class"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetchpool_fetch_duration_seconds",
		Help:    "Fetch duration in seconds by result",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	}, []string{"result"})
)
