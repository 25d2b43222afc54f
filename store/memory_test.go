package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hubflow/eventproc/types"
)

func memOwnership(partitionID, ownerID string) types.Ownership {
	return types.Ownership{
		EventHubName:  "hub",
		ConsumerGroup: "$Default",
		PartitionID:   partitionID,
		OwnerID:       ownerID,
	}
}

func TestMemory_FirstClaim(t *testing.T) {
	s := NewMemory()

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-a")})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NotEmpty(t, claimed[0].ETag)
	require.False(t, claimed[0].LastModified.IsZero())
}

func TestMemory_StaleETagIsSkipped(t *testing.T) {
	s := NewMemory()

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-a")})
	require.NoError(t, err)
	original := claimed[0]

	// owner-b takes over with the current etag.
	takeover := original
	takeover.OwnerID = "owner-b"
	claimed, err = s.ClaimOwnership(t.Context(), []types.Ownership{takeover})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NotEqual(t, original.ETag, claimed[0].ETag, "every successful claim rotates the etag")

	// owner-a's etag is now stale: its refresh is silently skipped.
	refresh := original
	claimed, err = s.ClaimOwnership(t.Context(), []types.Ownership{refresh})
	require.NoError(t, err)
	require.Empty(t, claimed)

	records, err := s.ListOwnership(t.Context(), "hub", "$Default")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "owner-b", records[0].OwnerID)
}

func TestMemory_EmptyETagOnExistingRecordIsSkipped(t *testing.T) {
	s := NewMemory()

	_, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-a")})
	require.NoError(t, err)

	// A first-time claim for a partition that meanwhile got a record must
	// lose.
	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-b")})
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestMemory_PartialSuccess(t *testing.T) {
	s := NewMemory()

	_, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("1", "owner-b")})
	require.NoError(t, err)

	// One conflicting record and one free one: only the free claim lands.
	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{
		memOwnership("0", "owner-a"),
		memOwnership("1", "owner-a"),
	})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, "0", claimed[0].PartitionID)
}

func TestMemory_ClaimPreservesCheckpoint(t *testing.T) {
	s := NewMemory()

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-a")})
	require.NoError(t, err)

	require.NoError(t, s.UpdateCheckpoint(t.Context(), "hub", "$Default", "0", "owner-a", "42", 42))

	// Refreshing ownership must not move the checkpoint.
	refreshed, err := s.ClaimOwnership(t.Context(), claimed)
	require.NoError(t, err)
	require.Len(t, refreshed, 1)
	require.Equal(t, "42", refreshed[0].Offset)
	require.Equal(t, int64(42), refreshed[0].SequenceNumber)
}

func TestMemory_UpdateCheckpointFencing(t *testing.T) {
	s := NewMemory()

	t.Run("no ownership record", func(t *testing.T) {
		err := s.UpdateCheckpoint(t.Context(), "hub", "$Default", "9", "owner-a", "1", 1)
		require.ErrorIs(t, err, types.ErrOwnershipLost)
	})

	t.Run("superseded owner", func(t *testing.T) {
		claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-a")})
		require.NoError(t, err)
		require.NoError(t, s.UpdateCheckpoint(t.Context(), "hub", "$Default", "0", "owner-a", "10", 10))

		takeover := claimed[0]
		takeover.OwnerID = "owner-b"
		_, err = s.ClaimOwnership(t.Context(), []types.Ownership{takeover})
		require.NoError(t, err)

		err = s.UpdateCheckpoint(t.Context(), "hub", "$Default", "0", "owner-a", "11", 11)
		require.ErrorIs(t, err, types.ErrOwnershipLost)

		// The fenced write left the previous checkpoint intact.
		records, err := s.ListOwnership(t.Context(), "hub", "$Default")
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "10", records[0].Offset)
	})
}

func TestMemory_ListFiltersByHubAndGroup(t *testing.T) {
	s := NewMemory()

	other := memOwnership("0", "owner-a")
	other.ConsumerGroup = "analytics"

	_, err := s.ClaimOwnership(t.Context(), []types.Ownership{memOwnership("0", "owner-a"), other})
	require.NoError(t, err)

	records, err := s.ListOwnership(t.Context(), "hub", "$Default")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "$Default", records[0].ConsumerGroup)

	records, err = s.ListOwnership(t.Context(), "hub", "analytics")
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = s.ListOwnership(t.Context(), "other-hub", "$Default")
	require.NoError(t, err)
	require.Empty(t, records)
}
