package types

import "context"

// CheckpointStore persists partition ownership records and checkpoints.
//
// The store is the single coordination point between processor instances:
// there is no leader election and no direct instance-to-instance
// communication. All claims go through optimistic concurrency on the
// record ETag.
//
// Implementations can use any backend able to honor the contract below:
// an in-memory map (see store.Memory), a NATS JetStream KV bucket
// (see store.NATSKV), blob leases, a relational table, etc. The core
// assumes nothing beyond this interface.
type CheckpointStore interface {
	// ListOwnership returns every known ownership record for the event
	// hub / consumer group pair, both active and expired.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - eventHubName: Event hub to list records for
	//   - consumerGroup: Consumer group scope
	//
	// Returns:
	//   - []Ownership: All known records (order unspecified)
	//   - error: Storage I/O error
	ListOwnership(ctx context.Context, eventHubName, consumerGroup string) ([]Ownership, error)

	// ClaimOwnership attempts to write or refresh each given record using
	// optimistic concurrency on ETag, and returns the subset that
	// succeeded with refreshed LastModified and ETag values.
	//
	// Record-level conflicts (another instance won the race) are normal
	// partial failures: the record is simply absent from the result, and
	// no error is returned for it. An error is returned only for
	// underlying storage failures.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - ownerships: Records to claim; the caller's ETag must match the
	//     stored one, or be empty for a record that does not exist yet
	//
	// Returns:
	//   - []Ownership: Successfully claimed records (order unspecified)
	//   - error: Storage I/O error, never a per-record conflict
	ClaimOwnership(ctx context.Context, ownerships []Ownership) ([]Ownership, error)

	// UpdateCheckpoint persists the checkpoint fields for a partition,
	// but only while the stored record's owner still matches ownerID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - eventHubName, consumerGroup, partitionID: Record key
	//   - ownerID: Identity of the caller; used as the fencing token
	//   - offset: Position to persist
	//   - sequenceNumber: Sequence number matching offset
	//
	// Returns:
	//   - error: ErrOwnershipLost if the caller no longer owns the
	//     partition (checkpoint fields left untouched), or a storage error
	UpdateCheckpoint(ctx context.Context, eventHubName, consumerGroup, partitionID, ownerID, offset string, sequenceNumber int64) error
}
