package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hubflow/eventproc/types"
)

// PrometheusCollector implements types.MetricsCollector backed by
// Prometheus.
//
// Collectors are registered lazily on first use so constructing the
// collector never panics on duplicate registration in tests.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	claimRounds     *prometheus.CounterVec
	claimLatency    prometheus.Histogram
	ownedPartitions prometheus.Gauge
	ownershipSteals prometheus.Counter
	batchesReceived *prometheus.CounterVec
	eventsReceived  *prometheus.CounterVec
	partitionCloses *prometheus.CounterVec
	processLatency  *prometheus.HistogramVec
	checkpoints     *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements
// MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "eventproc" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "eventproc"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.claimRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "ownership",
			Name:      "claim_rounds_total",
			Help:      "Total balancing rounds by result.",
		}, []string{"result"})

		p.claimLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "ownership",
			Name:      "claim_round_seconds",
			Help:      "Balancing round duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		})

		p.ownedPartitions = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "ownership",
			Name:      "owned_partitions",
			Help:      "Number of partitions currently owned by this instance.",
		})

		p.ownershipSteals = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "ownership",
			Name:      "steals_total",
			Help:      "Total partitions stolen from overloaded owners.",
		})

		p.batchesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partition",
			Name:      "batches_received_total",
			Help:      "Total event batches received by partition.",
		}, []string{"partition"})

		p.eventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partition",
			Name:      "events_received_total",
			Help:      "Total events received by partition.",
		}, []string{"partition"})

		p.partitionCloses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partition",
			Name:      "closes_total",
			Help:      "Total receive loop terminations by close reason.",
		}, []string{"partition", "reason"})

		p.processLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "partition",
			Name:      "process_seconds",
			Help:      "ProcessEvents callback latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"partition"})

		p.checkpoints = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "checkpoint",
			Name:      "updates_total",
			Help:      "Total checkpoint updates by result.",
		}, []string{"partition", "result"})

		p.reg.MustRegister(
			p.claimRounds, p.claimLatency, p.ownedPartitions, p.ownershipSteals,
			p.batchesReceived, p.eventsReceived, p.partitionCloses,
			p.processLatency, p.checkpoints,
		)
	})
}

// RecordClaimRound records one completed balancing round.
func (p *PrometheusCollector) RecordClaimRound(_ /* requested */, _ /* claimed */ int, duration float64) {
	p.ensureRegistered()
	p.claimRounds.WithLabelValues("ok").Inc()
	p.claimLatency.Observe(duration)
}

// RecordOwnedPartitions sets the owned partition gauge.
func (p *PrometheusCollector) RecordOwnedPartitions(count int) {
	p.ensureRegistered()
	p.ownedPartitions.Set(float64(count))
}

// RecordOwnershipSteal increments the steal counter.
func (p *PrometheusCollector) RecordOwnershipSteal(_ /* fromOwner */ string) {
	p.ensureRegistered()
	p.ownershipSteals.Inc()
}

// RecordClaimFailure records a failed balancing round.
func (p *PrometheusCollector) RecordClaimFailure() {
	p.ensureRegistered()
	p.claimRounds.WithLabelValues("error").Inc()
}

// RecordBatchReceived records a received batch and its event count.
func (p *PrometheusCollector) RecordBatchReceived(partitionID string, events int) {
	p.ensureRegistered()
	p.batchesReceived.WithLabelValues(partitionID).Inc()
	p.eventsReceived.WithLabelValues(partitionID).Add(float64(events))
}

// RecordPartitionStart is tracked via the owned partition gauge; the
// per-partition start itself is not exported.
func (p *PrometheusCollector) RecordPartitionStart(_ /* partitionID */ string) {}

// RecordPartitionClose records a receive loop termination.
func (p *PrometheusCollector) RecordPartitionClose(partitionID string, reason types.CloseReason) {
	p.ensureRegistered()
	p.partitionCloses.WithLabelValues(partitionID, reason.String()).Inc()
}

// RecordProcessDuration records ProcessEvents latency.
func (p *PrometheusCollector) RecordProcessDuration(partitionID string, duration float64) {
	p.ensureRegistered()
	p.processLatency.WithLabelValues(partitionID).Observe(duration)
}

// RecordCheckpoint records a checkpoint attempt.
func (p *PrometheusCollector) RecordCheckpoint(partitionID string, success bool) {
	p.ensureRegistered()
	result := "ok"
	if !success {
		result = "error"
	}
	p.checkpoints.WithLabelValues(partitionID, result).Inc()
}
