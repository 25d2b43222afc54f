package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better
// modularity.
type MetricsCollector interface {
	OwnershipMetrics
	PartitionMetrics
	CheckpointMetrics
}

// OwnershipMetrics defines metrics for load-balancing rounds.
type OwnershipMetrics interface {
	// RecordClaimRound records one completed balancing round.
	//
	// Parameters:
	//   - requested: Number of records submitted to the store
	//   - claimed: Number of records the store confirmed
	//   - duration: Round duration in seconds
	RecordClaimRound(requested, claimed int, duration float64)

	// RecordOwnedPartitions sets the current owned partition count
	// (gauge metric).
	RecordOwnedPartitions(count int)

	// RecordOwnershipSteal records that a partition was taken from an
	// overloaded owner.
	RecordOwnershipSteal(fromOwner string)

	// RecordClaimFailure records a balancing round that failed at the
	// store and will be retried next interval.
	RecordClaimFailure()
}

// PartitionMetrics defines metrics for per-partition receive loops.
type PartitionMetrics interface {
	// RecordBatchReceived records a received batch for a partition.
	RecordBatchReceived(partitionID string, events int)

	// RecordPartitionStart records a receive loop starting.
	RecordPartitionStart(partitionID string)

	// RecordPartitionClose records a receive loop ending with the given
	// terminal reason.
	RecordPartitionClose(partitionID string, reason CloseReason)

	// RecordProcessDuration records ProcessEvents latency in seconds.
	RecordProcessDuration(partitionID string, duration float64)
}

// CheckpointMetrics defines metrics for checkpoint persistence.
type CheckpointMetrics interface {
	// RecordCheckpoint records a checkpoint attempt.
	//
	// Parameters:
	//   - partitionID: Partition being checkpointed
	//   - success: false for fencing or storage failures
	RecordCheckpoint(partitionID string, success bool)
}
