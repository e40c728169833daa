// Package metrics provides centralized Prometheus metrics access for fetch-pool.
// All metrics are defined in their respective packages (dispatch, fetch)
// to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Namespace prefixes every metric name owned by fetch-pool.
const Namespace = "fetchpool_"

// Registry is the default Prometheus registry used by fetch-pool.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Gather returns the current fetchpool_* metric families.
func Gather() ([]*dto.MetricFamily, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := families[:0]
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Namespace) {
			out = append(out, mf)
		}
	}
	return out, nil
}

// WriteText writes the fetchpool_* families in the Prometheus text format.
func WriteText(w io.Writer) error {
	families, err := Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves every registered metric for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Dispatch Metrics (pkg/dispatch):
//   - fetchpool_dispatch_inflight (Gauge): Operations currently running
//   - fetchpool_dispatch_items_total (Counter): Items completed by workers
//   - fetchpool_dispatch_batch_duration_seconds (Histogram): Wall time of one batch
//   - fetchpool_dispatch_faults_total (Counter): Batches aborted by a panicking operation
//
// Fetch Metrics (pkg/fetch):
//   - fetchpool_fetch_requests_total{result, class} (Counter): Fetches by result and error class
//   - fetchpool_fetch_duration_seconds{result} (Histogram): Fetch duration by result
//
// Example Prometheus Queries:
//
//   # Failure Rate
//   sum(rate(fetchpool_fetch_requests_total{result="error"}[5m])) /
//   sum(rate(fetchpool_fetch_requests_total[5m]))
//
//   # Saturation (compare against the configured concurrency)
//   max_over_time(fetchpool_dispatch_inflight[1m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(fetchpool_fetch_duration_seconds_bucket[5m]))
