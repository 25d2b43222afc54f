package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/hubflow/eventproc/internal/kvutil"
	"github.com/hubflow/eventproc/internal/logging"
	"github.com/hubflow/eventproc/types"
)

const (
	ownershipPrefix  = "ownership"
	checkpointPrefix = "checkpoint"
)

// NATSKV is a CheckpointStore backed by a NATS JetStream KeyValue bucket.
//
// Ownership records and checkpoints live under separate keys:
//
//	ownership.<eventhub>.<consumer group>.<partition>
//	checkpoint.<eventhub>.<consumer group>.<partition>
//
// so a claim can never move a checkpoint and vice versa. The KV revision
// of the ownership key doubles as the record's ETag: first-time claims use
// the atomic Create operation, refreshes use Update with the caller's
// revision, and either losing its race is a per-record skip rather than
// an error.
//
// Event hub, consumer group and partition names must be valid KV key
// tokens (alphanumerics, '-', '_').
type NATSKV struct {
	kv     jetstream.KeyValue
	logger types.Logger
}

// Compile-time assertion that NATSKV implements CheckpointStore.
var _ types.CheckpointStore = (*NATSKV)(nil)

// ownershipRecord is the persisted shape of an ownership key's value.
// The ETag is carried by the KV revision, not the payload.
type ownershipRecord struct {
	EventHubName  string    `json:"eventhubName"`
	ConsumerGroup string    `json:"consumerGroup"`
	PartitionID   string    `json:"partitionId"`
	OwnerID       string    `json:"ownerId"`
	LastModified  time.Time `json:"lastModified"`
}

// checkpointRecord is the persisted shape of a checkpoint key's value.
type checkpointRecord struct {
	Offset         string `json:"offset"`
	SequenceNumber int64  `json:"sequenceNumber"`
}

// NewNATSKV creates or opens the named KV bucket and returns a store
// backed by it.
//
// The bucket is created without a TTL: record freshness is judged by the
// LastModified timestamp against the configured ownership timeout, not by
// key expiry, so expired records remain listable (and reclaimable with
// their stored ETag).
//
// Parameters:
//   - ctx: Context for bucket creation
//   - js: JetStream context
//   - bucket: KV bucket name shared by all cooperating instances
//   - logger: Logger for store diagnostics (nil for no-op)
//
// Returns:
//   - *NATSKV: Store bound to the bucket
//   - error: Bucket creation/open failure
func NewNATSKV(ctx context.Context, js jetstream.JetStream, bucket string, logger types.Logger) (*NATSKV, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	kv, err := kvutil.EnsureBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	}, 5)
	if err != nil {
		return nil, err
	}

	return &NATSKV{kv: kv, logger: logger}, nil
}

// NewNATSKVWithBucket wraps an existing KV bucket.
func NewNATSKVWithBucket(kv jetstream.KeyValue, logger types.Logger) *NATSKV {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &NATSKV{kv: kv, logger: logger}
}

// ListOwnership returns every ownership record for the pair, merged with
// its checkpoint data.
func (s *NATSKV) ListOwnership(ctx context.Context, eventHubName, consumerGroup string) ([]types.Ownership, error) {
	filter := fmt.Sprintf("%s.%s.%s.*", ownershipPrefix, eventHubName, consumerGroup)

	lister, err := s.kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ownership keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var result []types.Ownership
	for key := range lister.Keys() {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				// Deleted between list and get.
				continue
			}

			return nil, fmt.Errorf("failed to read ownership key %s: %w", key, err)
		}

		var rec ownershipRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ownership key %s: %w", key, err)
		}

		ownership := types.Ownership{
			EventHubName:  rec.EventHubName,
			ConsumerGroup: rec.ConsumerGroup,
			PartitionID:   rec.PartitionID,
			OwnerID:       rec.OwnerID,
			LastModified:  rec.LastModified,
			ETag:          strconv.FormatUint(entry.Revision(), 10),
		}

		if cp, ok, err := s.getCheckpoint(ctx, eventHubName, consumerGroup, rec.PartitionID); err != nil {
			return nil, err
		} else if ok {
			ownership.Offset = cp.Offset
			ownership.SequenceNumber = cp.SequenceNumber
		}

		result = append(result, ownership)
	}

	return result, nil
}

// ClaimOwnership attempts each claim with optimistic concurrency on the
// KV revision, returning the confirmed subset.
func (s *NATSKV) ClaimOwnership(ctx context.Context, ownerships []types.Ownership) ([]types.Ownership, error) {
	now := time.Now()
	var claimed []types.Ownership

	for _, req := range ownerships {
		key := ownershipKey(req.EventHubName, req.ConsumerGroup, req.PartitionID)

		rec := ownershipRecord{
			EventHubName:  req.EventHubName,
			ConsumerGroup: req.ConsumerGroup,
			PartitionID:   req.PartitionID,
			OwnerID:       req.OwnerID,
			LastModified:  now,
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ownership record: %w", err)
		}

		var revision uint64
		if req.ETag == "" {
			revision, err = s.kv.Create(ctx, key, data)
			if err != nil {
				if errors.Is(err, jetstream.ErrKeyExists) {
					// Another instance created the record first.
					continue
				}

				return nil, fmt.Errorf("failed to create ownership key %s: %w", key, err)
			}
		} else {
			prev, parseErr := strconv.ParseUint(req.ETag, 10, 64)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid etag %q for key %s: %w", req.ETag, key, parseErr)
			}

			revision, err = s.kv.Update(ctx, key, data, prev)
			if err != nil {
				if isRevisionConflict(err) {
					// The record moved since the caller listed it.
					continue
				}

				return nil, fmt.Errorf("failed to update ownership key %s: %w", key, err)
			}
		}

		req.LastModified = now
		req.ETag = strconv.FormatUint(revision, 10)
		claimed = append(claimed, req)
	}

	return claimed, nil
}

// UpdateCheckpoint persists the checkpoint for a partition, fenced on the
// current ownership record's owner id.
//
// The fence is a read-then-write across two KV keys, so an owner fenced
// out between the ownership read and the checkpoint write can still land
// one stale write. The consequence of losing that race is a checkpoint
// regression of at most one batch, which the next owner replays; the
// delivery model is at-least-once either way.
func (s *NATSKV) UpdateCheckpoint(ctx context.Context, eventHubName, consumerGroup, partitionID, ownerID, offset string, sequenceNumber int64) error {
	key := ownershipKey(eventHubName, consumerGroup, partitionID)

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.ErrOwnershipLost
		}

		return fmt.Errorf("failed to read ownership key %s: %w", key, err)
	}

	var rec ownershipRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return fmt.Errorf("failed to unmarshal ownership key %s: %w", key, err)
	}

	if rec.OwnerID != ownerID {
		return types.ErrOwnershipLost
	}

	data, err := json.Marshal(checkpointRecord{Offset: offset, SequenceNumber: sequenceNumber})
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	cpKey := checkpointKey(eventHubName, consumerGroup, partitionID)
	if _, err := s.kv.Put(ctx, cpKey, data); err != nil {
		return fmt.Errorf("failed to write checkpoint key %s: %w", cpKey, err)
	}

	return nil
}

// getCheckpoint reads the checkpoint record for a partition if present.
func (s *NATSKV) getCheckpoint(ctx context.Context, eventHubName, consumerGroup, partitionID string) (checkpointRecord, bool, error) {
	key := checkpointKey(eventHubName, consumerGroup, partitionID)

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return checkpointRecord{}, false, nil
		}

		return checkpointRecord{}, false, fmt.Errorf("failed to read checkpoint key %s: %w", key, err)
	}

	var rec checkpointRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return checkpointRecord{}, false, fmt.Errorf("failed to unmarshal checkpoint key %s: %w", key, err)
	}

	return rec, true, nil
}

func ownershipKey(eventHubName, consumerGroup, partitionID string) string {
	return fmt.Sprintf("%s.%s.%s.%s", ownershipPrefix, eventHubName, consumerGroup, partitionID)
}

func checkpointKey(eventHubName, consumerGroup, partitionID string) string {
	return fmt.Sprintf("%s.%s.%s.%s", checkpointPrefix, eventHubName, consumerGroup, partitionID)
}

// isRevisionConflict reports whether an Update error means the caller's
// revision was stale. The JetStream client surfaces this as a "wrong last
// sequence" API error, which may arrive wrapped.
func isRevisionConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	return strings.Contains(err.Error(), "wrong last sequence")
}
