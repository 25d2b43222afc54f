// Package metrics provides MetricsCollector implementations for the
// eventproc library.
package metrics

import "github.com/hubflow/eventproc/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external metrics
// collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// OwnershipMetrics implementation

// RecordClaimRound discards the claim round metric.
func (n *NopMetrics) RecordClaimRound(_ /* requested */, _ /* claimed */ int, _ /* duration */ float64) {
	// No-op
}

// RecordOwnedPartitions discards the owned partition gauge.
func (n *NopMetrics) RecordOwnedPartitions(_ /* count */ int) {
	// No-op
}

// RecordOwnershipSteal discards the steal counter.
func (n *NopMetrics) RecordOwnershipSteal(_ /* fromOwner */ string) {
	// No-op
}

// RecordClaimFailure discards the claim failure counter.
func (n *NopMetrics) RecordClaimFailure() {
	// No-op
}

// PartitionMetrics implementation

// RecordBatchReceived discards the batch metric.
func (n *NopMetrics) RecordBatchReceived(_ /* partitionID */ string, _ /* events */ int) {
	// No-op
}

// RecordPartitionStart discards the partition start counter.
func (n *NopMetrics) RecordPartitionStart(_ /* partitionID */ string) {
	// No-op
}

// RecordPartitionClose discards the partition close counter.
func (n *NopMetrics) RecordPartitionClose(_ /* partitionID */ string, _ /* reason */ types.CloseReason) {
	// No-op
}

// RecordProcessDuration discards the processing latency metric.
func (n *NopMetrics) RecordProcessDuration(_ /* partitionID */ string, _ /* duration */ float64) {
	// No-op
}

// CheckpointMetrics implementation

// RecordCheckpoint discards the checkpoint metric.
func (n *NopMetrics) RecordCheckpoint(_ /* partitionID */ string, _ /* success */ bool) {
	// No-op
}
