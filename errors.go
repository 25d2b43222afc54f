package eventproc

import "github.com/hubflow/eventproc/types"

// Sentinel errors returned by the ConsumerClient and EventProcessor.
// Aliased from the types package so callers can errors.Is() against either
// import path.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrTransportRequired is returned when the event hub client is nil.
	ErrTransportRequired = types.ErrTransportRequired

	// ErrStoreRequired is returned when the checkpoint store is nil.
	ErrStoreRequired = types.ErrStoreRequired

	// ErrProcessorRequired is returned when no partition processor factory
	// is supplied.
	ErrProcessorRequired = types.ErrProcessorRequired

	// ErrAlreadyStarted is returned when Start is called on a running
	// processor.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = types.ErrNotStarted

	// ErrReceiveInProgress is returned when a consumer group / partition
	// combination is already being consumed by this client.
	ErrReceiveInProgress = types.ErrReceiveInProgress

	// ErrClientClosed is returned when a closed consumer client is used.
	ErrClientClosed = types.ErrClientClosed

	// ErrOwnershipLost is returned by PartitionContext.UpdateCheckpoint
	// when this instance no longer owns the partition.
	ErrOwnershipLost = types.ErrOwnershipLost
)
