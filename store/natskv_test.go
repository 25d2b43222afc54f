package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	eptest "github.com/hubflow/eventproc/testing"
	"github.com/hubflow/eventproc/types"
)

// Consumer group names must be valid KV key tokens, so no "$Default" here.
const (
	kvHub   = "orders"
	kvGroup = "billing"
)

func newKVStore(t *testing.T) *NATSKV {
	t.Helper()

	_, nc := eptest.StartEmbeddedNATS(t)
	kv := eptest.CreateJetStreamKV(t, nc, "checkpoints")

	return NewNATSKVWithBucket(kv, nil)
}

func kvOwnership(partitionID, ownerID string) types.Ownership {
	return types.Ownership{
		EventHubName:  kvHub,
		ConsumerGroup: kvGroup,
		PartitionID:   partitionID,
		OwnerID:       ownerID,
	}
}

func TestNATSKV_ClaimAndList(t *testing.T) {
	s := newKVStore(t)

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{
		kvOwnership("0", "owner-a"),
		kvOwnership("1", "owner-a"),
	})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, rec := range claimed {
		require.NotEmpty(t, rec.ETag, "etag carries the KV revision")
		require.False(t, rec.LastModified.IsZero())
	}

	records, err := s.ListOwnership(t.Context(), kvHub, kvGroup)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		require.Equal(t, "owner-a", rec.OwnerID)
		require.Equal(t, kvHub, rec.EventHubName)
		require.Equal(t, kvGroup, rec.ConsumerGroup)
	}
}

func TestNATSKV_ListScopesByHubAndGroup(t *testing.T) {
	s := newKVStore(t)

	other := kvOwnership("0", "owner-a")
	other.ConsumerGroup = "audit"
	_, err := s.ClaimOwnership(t.Context(), []types.Ownership{kvOwnership("0", "owner-a"), other})
	require.NoError(t, err)

	records, err := s.ListOwnership(t.Context(), kvHub, kvGroup)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, kvGroup, records[0].ConsumerGroup)

	records, err = s.ListOwnership(t.Context(), kvHub, "audit")
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = s.ListOwnership(t.Context(), "unknown", kvGroup)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestNATSKV_FirstClaimRaceLosesQuietly(t *testing.T) {
	s := newKVStore(t)

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{kvOwnership("0", "owner-a")})
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// A second empty-etag claim hits the existing key: per-record skip,
	// not an error.
	claimed, err = s.ClaimOwnership(t.Context(), []types.Ownership{kvOwnership("0", "owner-b")})
	require.NoError(t, err)
	require.Empty(t, claimed)

	records, err := s.ListOwnership(t.Context(), kvHub, kvGroup)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "owner-a", records[0].OwnerID)
}

func TestNATSKV_StaleRevisionIsSkipped(t *testing.T) {
	s := newKVStore(t)

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{kvOwnership("0", "owner-a")})
	require.NoError(t, err)
	original := claimed[0]

	takeover := original
	takeover.OwnerID = "owner-b"
	claimed, err = s.ClaimOwnership(t.Context(), []types.Ownership{takeover})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NotEqual(t, original.ETag, claimed[0].ETag)

	// owner-a refreshes with its now-stale revision.
	claimed, err = s.ClaimOwnership(t.Context(), []types.Ownership{original})
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestNATSKV_CheckpointLifecycle(t *testing.T) {
	s := newKVStore(t)

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{kvOwnership("0", "owner-a")})
	require.NoError(t, err)

	require.NoError(t, s.UpdateCheckpoint(t.Context(), kvHub, kvGroup, "0", "owner-a", "1024", 7))

	// The checkpoint is merged into listed records and survives an
	// ownership refresh.
	refreshed, err := s.ClaimOwnership(t.Context(), claimed)
	require.NoError(t, err)
	require.Len(t, refreshed, 1)

	records, err := s.ListOwnership(t.Context(), kvHub, kvGroup)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "1024", records[0].Offset)
	require.Equal(t, int64(7), records[0].SequenceNumber)
}

func TestNATSKV_UpdateCheckpointFencing(t *testing.T) {
	s := newKVStore(t)

	t.Run("no ownership record", func(t *testing.T) {
		err := s.UpdateCheckpoint(t.Context(), kvHub, kvGroup, "9", "owner-a", "1", 1)
		require.ErrorIs(t, err, types.ErrOwnershipLost)
	})

	t.Run("superseded owner", func(t *testing.T) {
		claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{kvOwnership("0", "owner-a")})
		require.NoError(t, err)
		require.NoError(t, s.UpdateCheckpoint(t.Context(), kvHub, kvGroup, "0", "owner-a", "10", 10))

		takeover := claimed[0]
		takeover.OwnerID = "owner-b"
		_, err = s.ClaimOwnership(t.Context(), []types.Ownership{takeover})
		require.NoError(t, err)

		err = s.UpdateCheckpoint(t.Context(), kvHub, kvGroup, "0", "owner-a", "11", 11)
		require.ErrorIs(t, err, types.ErrOwnershipLost)

		records, err := s.ListOwnership(t.Context(), kvHub, kvGroup)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "10", records[0].Offset, "fenced write left the checkpoint intact")
	})
}
