package types

import "context"

// CloseReason classifies why a partition's receive loop terminated.
//
// The reason is reported to user code through PartitionProcessor.Close and
// is terminal: the core never re-interprets it.
type CloseReason int

const (
	// ReasonShutdown means the whole processor is stopping.
	ReasonShutdown CloseReason = iota

	// ReasonOwnershipLost means another instance claimed the partition,
	// or the checkpoint fencing check failed.
	ReasonOwnershipLost

	// ReasonEventHubError means the transport failed while receiving.
	ReasonEventHubError

	// ReasonProcessEventsError means the user ProcessEvents callback
	// returned an error.
	ReasonProcessEventsError
)

// String returns the string representation of the reason.
func (r CloseReason) String() string {
	switch r {
	case ReasonShutdown:
		return "Shutdown"
	case ReasonOwnershipLost:
		return "OwnershipLost"
	case ReasonEventHubError:
		return "EventHubError"
	case ReasonProcessEventsError:
		return "ProcessEventsError"
	default:
		return "Unknown"
	}
}

// PartitionContext is the per-partition handle passed to every
// PartitionProcessor callback.
//
// It identifies the partition being processed and exposes the only way
// user code can persist progress. One context is created when a claimed
// partition's receive loop starts and discarded when that loop ends.
type PartitionContext struct {
	eventHubName  string
	consumerGroup string
	partitionID   string
	ownerID       string
	store         CheckpointStore
	metrics       CheckpointMetrics
}

// NewPartitionContext builds the context for one claimed partition.
//
// Parameters:
//   - eventHubName, consumerGroup, partitionID: Partition identity
//   - ownerID: Identity of the owning processor instance
//   - store: Checkpoint store used by UpdateCheckpoint
//   - metrics: Checkpoint metrics sink (nil disables recording)
func NewPartitionContext(eventHubName, consumerGroup, partitionID, ownerID string, store CheckpointStore, metrics CheckpointMetrics) *PartitionContext {
	return &PartitionContext{
		eventHubName:  eventHubName,
		consumerGroup: consumerGroup,
		partitionID:   partitionID,
		ownerID:       ownerID,
		store:         store,
		metrics:       metrics,
	}
}

// EventHubName returns the event hub being consumed.
func (c *PartitionContext) EventHubName() string { return c.eventHubName }

// ConsumerGroup returns the consumer group being consumed as.
func (c *PartitionContext) ConsumerGroup() string { return c.consumerGroup }

// PartitionID returns the partition this context is bound to.
func (c *PartitionContext) PartitionID() string { return c.partitionID }

// OwnerID returns the identity of the owning processor instance.
func (c *PartitionContext) OwnerID() string { return c.ownerID }

// UpdateCheckpoint persists the given position as the partition's
// checkpoint, fenced on this context's owner id.
//
// Call it from within ProcessEvents (or later) so positions are only
// persisted after the application has durably handled the events.
// Checkpoints must only move forward; that discipline is the caller's.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - offset: Position to persist
//   - sequenceNumber: Sequence number matching offset
//
// Returns:
//   - error: ErrOwnershipLost if ownership has been superseded, or a
//     storage error
func (c *PartitionContext) UpdateCheckpoint(ctx context.Context, offset string, sequenceNumber int64) error {
	err := c.store.UpdateCheckpoint(ctx, c.eventHubName, c.consumerGroup, c.partitionID, c.ownerID, offset, sequenceNumber)
	if c.metrics != nil {
		c.metrics.RecordCheckpoint(c.partitionID, err == nil)
	}

	return err
}

// PartitionProcessor is the user-supplied per-partition callback set.
//
// One instance is created for every claimed partition when its receive
// loop starts; instances are never shared across partitions. ProcessEvents
// is the only required behavior; embed NopProcessor (or use
// eventproc.ProcessorFuncs) to pick up no-op defaults for the rest.
//
// All callbacks run on the partition's own receive goroutine and may block
// or perform I/O; they should honor ctx cancellation.
type PartitionProcessor interface {
	// Initialize is called once before the first batch. An error is
	// logged and swallowed; it does not stop the receive loop.
	Initialize(ctx context.Context, partition *PartitionContext) error

	// ProcessEvents is called for each received batch, in partition
	// order. Returning an error ends the partition's receive loop with
	// ReasonProcessEventsError.
	ProcessEvents(ctx context.Context, events []*EventData, partition *PartitionContext) error

	// ProcessError is called when the transport or ProcessEvents fails,
	// before Close.
	ProcessError(ctx context.Context, err error, partition *PartitionContext)

	// Close is called exactly once when the receive loop ends, with the
	// terminal reason.
	Close(ctx context.Context, reason CloseReason, partition *PartitionContext)
}

// NopProcessor provides no-op implementations of the optional
// PartitionProcessor callbacks. Embed it and override ProcessEvents.
type NopProcessor struct{}

// Initialize is a no-op.
func (NopProcessor) Initialize(_ context.Context, _ *PartitionContext) error { return nil }

// ProcessError is a no-op.
func (NopProcessor) ProcessError(_ context.Context, _ error, _ *PartitionContext) {}

// Close is a no-op.
func (NopProcessor) Close(_ context.Context, _ CloseReason, _ *PartitionContext) {}
