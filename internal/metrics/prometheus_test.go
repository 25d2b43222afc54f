package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hubflow/eventproc/types"
)

func TestPrometheusCollector_RegistersLazily(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families, "nothing registered before first use")

	c.RecordClaimRound(2, 1, 0.05)
	c.RecordOwnedPartitions(3)
	c.RecordOwnershipSteal("other-owner")
	c.RecordClaimFailure()
	c.RecordBatchReceived("0", 10)
	c.RecordPartitionStart("0")
	c.RecordPartitionClose("0", types.ReasonShutdown)
	c.RecordProcessDuration("0", 0.002)
	c.RecordCheckpoint("0", true)
	c.RecordCheckpoint("0", false)

	families, err = reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}

	for _, want := range []string{
		"test_ownership_claim_rounds_total",
		"test_ownership_claim_round_seconds",
		"test_ownership_owned_partitions",
		"test_ownership_steals_total",
		"test_partition_batches_received_total",
		"test_partition_events_received_total",
		"test_partition_closes_total",
		"test_partition_process_seconds",
		"test_checkpoint_updates_total",
	} {
		require.True(t, names[want], "metric family %s not registered", want)
	}
}

func TestPrometheusCollector_Defaults(t *testing.T) {
	// Separate registry per collector keeps repeated construction safe.
	a := NewPrometheus(prometheus.NewRegistry(), "")
	b := NewPrometheus(prometheus.NewRegistry(), "")

	a.RecordOwnedPartitions(1)
	b.RecordOwnedPartitions(2)
}
