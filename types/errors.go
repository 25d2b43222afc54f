package types

import "errors"

// Sentinel errors for the eventproc library.
//
// Components use these for known error conditions so callers can test
// with errors.Is(), and wrap external failures with
// fmt.Errorf("...: %w", err).

// Processor and facade errors.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTransportRequired is returned when the event hub client is nil.
	ErrTransportRequired = errors.New("event hub client is required")

	// ErrStoreRequired is returned when the checkpoint store is nil.
	ErrStoreRequired = errors.New("checkpoint store is required")

	// ErrProcessorRequired is returned when no partition processor
	// factory is supplied.
	ErrProcessorRequired = errors.New("partition processor is required")

	// ErrAlreadyStarted is returned when Start is called on a running
	// processor.
	ErrAlreadyStarted = errors.New("processor already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("processor not started")

	// ErrReceiveInProgress is returned when a consumer group / partition
	// combination is already being consumed by this client.
	ErrReceiveInProgress = errors.New("receive already in progress for this consumer group and partition")

	// ErrClientClosed is returned when a closed consumer client is used.
	ErrClientClosed = errors.New("consumer client is closed")
)

// Store errors.
var (
	// ErrOwnershipLost is returned by CheckpointStore.UpdateCheckpoint
	// when the fencing check fails: the caller's owner id no longer
	// matches the stored record. The receive loop treats it as the
	// signal to shut the partition down cleanly, not as a fault.
	ErrOwnershipLost = errors.New("partition ownership lost")
)
