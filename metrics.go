package eventproc

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hubflow/eventproc/internal/metrics"
)

// NewPrometheusMetrics creates a Prometheus-backed MetricsCollector.
//
// Collectors register lazily on first use, so constructing one is cheap
// and never panics on duplicate registration.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace ("eventproc" if empty)
//
// Returns:
//   - MetricsCollector: Collector usable with WithMetrics
//
// Example:
//
//	client, err := eventproc.NewConsumerClient(cfg, hub, store,
//	    eventproc.WithMetrics(eventproc.NewPrometheusMetrics(nil, "")))
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}
