// Package store provides CheckpointStore implementations.
//
// Memory is a single-process reference store used by tests and simulations;
// NATSKV persists records in a NATS JetStream KeyValue bucket and is
// suitable for fleets of cooperating processor instances.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubflow/eventproc/types"
)

// Memory is an in-memory CheckpointStore.
//
// It honors the full claim contract, including optimistic concurrency on
// ETag, so multiple processor instances within one process can balance
// against it. State does not survive the process.
type Memory struct {
	mu      sync.Mutex
	records map[string]types.Ownership
}

// Compile-time assertion that Memory implements CheckpointStore.
var _ types.CheckpointStore = (*Memory)(nil)

// NewMemory creates an empty in-memory checkpoint store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]types.Ownership)}
}

// ListOwnership returns all records for the event hub / consumer group
// pair, active and expired.
func (s *Memory) ListOwnership(_ context.Context, eventHubName, consumerGroup string) ([]types.Ownership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []types.Ownership
	for _, rec := range s.records {
		if rec.EventHubName == eventHubName && rec.ConsumerGroup == consumerGroup {
			result = append(result, rec)
		}
	}

	return result, nil
}

// ClaimOwnership writes or refreshes each record whose ETag matches the
// stored one (or that does not exist yet), returning the confirmed subset
// with fresh LastModified and ETag values. Conflicting records are
// silently skipped.
func (s *Memory) ClaimOwnership(_ context.Context, ownerships []types.Ownership) ([]types.Ownership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var claimed []types.Ownership

	for _, req := range ownerships {
		key := req.Key()
		stored, exists := s.records[key]

		if exists && stored.ETag != req.ETag {
			// Another instance claimed this record since the caller
			// listed it.
			continue
		}

		req.LastModified = now
		req.ETag = uuid.NewString()
		if exists {
			// Checkpoint fields are owned by UpdateCheckpoint; a claim
			// never moves them.
			req.Offset = stored.Offset
			req.SequenceNumber = stored.SequenceNumber
		}

		s.records[key] = req
		claimed = append(claimed, req)
	}

	return claimed, nil
}

// UpdateCheckpoint persists the checkpoint fields for a record, fenced on
// ownerID.
func (s *Memory) UpdateCheckpoint(_ context.Context, eventHubName, consumerGroup, partitionID, ownerID, offset string, sequenceNumber int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.Ownership{
		EventHubName:  eventHubName,
		ConsumerGroup: consumerGroup,
		PartitionID:   partitionID,
	}.Key()

	stored, exists := s.records[key]
	if !exists || stored.OwnerID != ownerID {
		return types.ErrOwnershipLost
	}

	stored.Offset = offset
	stored.SequenceNumber = sequenceNumber
	s.records[key] = stored

	return nil
}
