package types

import "time"

// Ownership is a persisted claim that a processor instance is currently
// responsible for consuming one partition of an event hub, scoped to a
// consumer group.
//
// The (EventHubName, ConsumerGroup, PartitionID) triple is the unique key.
// Ownership is advisory and exclusive: a record whose LastModified timestamp
// has aged past the ownership timeout is considered expired and may be
// claimed by any other instance.
//
// OwnerID, LastModified and ETag are mutated only through
// CheckpointStore.ClaimOwnership; Offset and SequenceNumber only through
// CheckpointStore.UpdateCheckpoint.
type Ownership struct {
	// EventHubName identifies the event hub this record belongs to.
	EventHubName string `json:"eventhubName"`

	// ConsumerGroup is the consumer group the claim is scoped to.
	ConsumerGroup string `json:"consumerGroup"`

	// PartitionID identifies the owned partition.
	PartitionID string `json:"partitionId"`

	// OwnerID is the identity of the processor instance holding the claim.
	OwnerID string `json:"ownerId"`

	// LastModified is the freshness marker set by the store on every
	// successful claim. A record is active iff
	// LastModified + ownership timeout >= now.
	LastModified time.Time `json:"lastModified"`

	// ETag is the opaque optimistic-concurrency token, regenerated by the
	// store on each successful claim. A claim succeeds only when the
	// caller's ETag matches the stored one (or no record exists yet).
	ETag string `json:"etag"`

	// Offset is the last durably checkpointed position, empty if the
	// partition has never been checkpointed.
	Offset string `json:"offset"`

	// SequenceNumber is the sequence number matching Offset.
	SequenceNumber int64 `json:"sequenceNumber"`
}

// Key returns the composite identity of the record.
//
// Returns:
//   - string: "<eventhub>/<consumer group>/<partition>" triple
func (o Ownership) Key() string {
	return o.EventHubName + "/" + o.ConsumerGroup + "/" + o.PartitionID
}

// Active reports whether the claim is still fresh at the given instant.
//
// Parameters:
//   - timeout: Configured ownership timeout
//   - now: Evaluation instant
//
// Returns:
//   - bool: true if LastModified + timeout >= now
func (o Ownership) Active(timeout time.Duration, now time.Time) bool {
	return !o.LastModified.Add(timeout).Before(now)
}
