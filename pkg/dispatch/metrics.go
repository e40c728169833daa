package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for dispatch operations.
var (
	dispatchInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fetchpool_dispatch_inflight",
		Help: "Number of operations currently executing across all batches",
	})

	dispatchItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchpool_dispatch_items_total",
		Help: "Total number of items processed by dispatcher workers",
	})

	dispatchBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fetchpool_dispatch_batch_duration_seconds",
		Help:    "Wall-clock duration of a dispatched batch in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	dispatchFaultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetchpool_dispatch_faults_total",
		Help: "Total number of batches aborted because an operation panicked",
	})
)
