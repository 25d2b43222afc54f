package types

import (
	"context"
	"time"
)

// Special EventPosition offsets.
const (
	// OffsetEarliest positions a consumer at the oldest retained event.
	OffsetEarliest = "-1"

	// OffsetLatest positions a consumer after the newest event, so only
	// events enqueued from now on are received.
	OffsetLatest = "@latest"
)

// EventPosition describes where in a partition's stream a consumer starts.
//
// Offset takes precedence when non-empty; otherwise SequenceNumber is used.
type EventPosition struct {
	// Offset is an opaque position marker, or one of OffsetEarliest /
	// OffsetLatest.
	Offset string `json:"offset"`

	// SequenceNumber positions the consumer after this sequence number.
	// Only consulted when Offset is empty.
	SequenceNumber int64 `json:"sequenceNumber"`
}

// PositionEarliest returns the position of the oldest retained event.
func PositionEarliest() EventPosition {
	return EventPosition{Offset: OffsetEarliest}
}

// PositionLatest returns the position just past the newest event.
func PositionLatest() EventPosition {
	return EventPosition{Offset: OffsetLatest}
}

// PositionFromOffset returns a position resuming after the given offset.
func PositionFromOffset(offset string) EventPosition {
	return EventPosition{Offset: offset}
}

// EventData is a single event received from a partition.
type EventData struct {
	// Body is the raw event payload.
	Body []byte

	// Offset is the event's opaque position within the partition.
	Offset string

	// SequenceNumber is the event's monotonically increasing sequence
	// number within the partition.
	SequenceNumber int64

	// EnqueuedTime is when the service accepted the event.
	EnqueuedTime time.Time

	// Properties carries application-defined annotations, may be nil.
	Properties map[string]string
}

// PartitionConsumer receives events from one partition of an event hub.
//
// Implementations typically embed their own receive timeout and retry
// policy; Receive returning an empty batch after such a timeout is valid.
type PartitionConsumer interface {
	// Receive returns the next batch of events from the partition.
	//
	// Blocks until events are available, an internal timeout elapses
	// (empty batch), the transport fails, or ctx is cancelled.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns:
	//   - []*EventData: Next batch, in partition order (may be empty)
	//   - error: Transport failure or ctx.Err()
	Receive(ctx context.Context) ([]*EventData, error)

	// Close releases the transport resources held by the consumer.
	//
	// Safe to call after a failed Receive; must be called exactly once.
	Close(ctx context.Context) error
}

// EventHubClient is the narrow transport surface the processor depends on.
//
// The wire-level protocol behind it is out of scope for this module; any
// implementation able to enumerate partitions and open per-partition
// consumers will do (see the testing package for an in-memory one).
type EventHubClient interface {
	// EventHubName returns the name of the event hub this client targets.
	EventHubName() string

	// GetPartitionIDs returns the ids of all partitions of the event hub.
	GetPartitionIDs(ctx context.Context) ([]string, error)

	// CreateConsumer opens a consumer on one partition, positioned at the
	// given starting point.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - consumerGroup: Consumer group to read as
	//   - partitionID: Partition to read
	//   - position: Starting position within the partition
	//
	// Returns:
	//   - PartitionConsumer: Open consumer (caller must Close)
	//   - error: Transport failure
	CreateConsumer(ctx context.Context, consumerGroup, partitionID string, position EventPosition) (PartitionConsumer, error)
}
