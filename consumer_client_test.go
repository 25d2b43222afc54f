package eventproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hubflow/eventproc/store"
	eptest "github.com/hubflow/eventproc/testing"
)

func newTestClient(t *testing.T, hub *eptest.SimulatedHub) *ConsumerClient {
	t.Helper()

	client, err := NewConsumerClient(TestConfig(), hub, store.NewMemory(),
		WithLogger(eptest.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	return client
}

// activeReceivers reads the registry size under its lock.
func activeReceivers(c *ConsumerClient) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.receivers)
}

func TestNewConsumerClient_Validation(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 1)
	st := store.NewMemory()

	_, err := NewConsumerClient(TestConfig(), nil, st)
	require.ErrorIs(t, err, ErrTransportRequired)

	_, err = NewConsumerClient(TestConfig(), hub, nil)
	require.ErrorIs(t, err, ErrStoreRequired)

	bad := TestConfig()
	bad.OwnershipTimeout = bad.LoadBalancingInterval
	_, err = NewConsumerClient(bad, hub, st)
	require.ErrorIs(t, err, ErrInvalidConfig)

	client, err := NewConsumerClient(TestConfig(), hub, st)
	require.NoError(t, err)
	require.Equal(t, "hub", client.EventHubName())

	ids, err := client.GetPartitionIDs(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"0"}, ids)
}

func TestConsumerClient_ReceiveDeliversAndUnblocksOnCancel(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 2)
	client := newTestClient(t, hub)

	ctx, cancel := context.WithCancel(t.Context())
	col := newCollector()

	done := make(chan error, 1)
	go func() {
		done <- client.Receive(ctx, testGroup, col.factory())
	}()

	require.NoError(t, hub.Push("0", []byte("a")))
	require.NoError(t, hub.Push("1", []byte("b")))

	require.Eventually(t, func() bool {
		return col.totalEvents() == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Receive did not return after cancellation")
	}

	require.Equal(t, 0, activeReceivers(client), "registry entry removed on unwind")
	require.Equal(t, 0, hub.OpenConsumers())
}

func TestConsumerClient_DuplicateReceiveRejected(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 2)
	client := newTestClient(t, hub)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() { _ = client.Receive(ctx, testGroup, newCollector().factory()) }()
	require.Eventually(t, func() bool {
		return activeReceivers(client) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Same group again, whole-hub or single-partition: both conflict with
	// the active all-partition receive.
	err := client.Receive(ctx, testGroup, newCollector().factory())
	require.ErrorIs(t, err, ErrReceiveInProgress)

	err = client.ReceivePartition(ctx, testGroup, "0", newCollector().factory())
	require.ErrorIs(t, err, ErrReceiveInProgress)
}

func TestConsumerClient_SinglePartitionBlocksAllPartitions(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 2)
	client := newTestClient(t, hub)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() { _ = client.ReceivePartition(ctx, testGroup, "0", newCollector().factory()) }()
	require.Eventually(t, func() bool {
		return activeReceivers(client) == 1
	}, 5*time.Second, 10*time.Millisecond)

	err := client.ReceivePartition(ctx, testGroup, "0", newCollector().factory())
	require.ErrorIs(t, err, ErrReceiveInProgress)

	err = client.Receive(ctx, testGroup, newCollector().factory())
	require.ErrorIs(t, err, ErrReceiveInProgress)

	// A different partition of the same group is fine.
	done := make(chan error, 1)
	go func() {
		done <- client.ReceivePartition(ctx, testGroup, "1", newCollector().factory())
	}()
	require.Eventually(t, func() bool {
		return activeReceivers(client) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		return activeReceivers(client) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConsumerClient_ReceivePartitionScopesConsumption(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 2)
	client := newTestClient(t, hub)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	col := newCollector()
	go func() { _ = client.ReceivePartition(ctx, testGroup, "1", col.factory()) }()

	require.NoError(t, hub.Push("0", []byte("other")))
	require.NoError(t, hub.Push("1", []byte("mine")))

	require.Eventually(t, func() bool {
		return col.eventCount("1") == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Zero(t, col.eventCount("0"), "unrequested partition stays untouched")
}

func TestConsumerClient_CloseUnblocksReceivers(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 2)
	client := newTestClient(t, hub)

	done := make(chan error, 1)
	go func() {
		done <- client.Receive(t.Context(), testGroup, newCollector().factory())
	}()
	require.Eventually(t, func() bool {
		return activeReceivers(client) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close(t.Context()))

	select {
	case err := <-done:
		require.NoError(t, err, "blocked Receive returns cleanly when the client closes")
	case <-time.After(5 * time.Second):
		t.Fatal("Receive did not return after Close")
	}

	err := client.Receive(t.Context(), testGroup, newCollector().factory())
	require.ErrorIs(t, err, ErrClientClosed)

	require.NoError(t, client.Close(t.Context()), "Close is idempotent")
}

func TestConsumerClient_CloseBeforeStartStopsProcessor(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 1)
	client := newTestClient(t, hub)

	// Reproduce the window inside receive where the registry slot exists
	// but the processor has not started yet when Close runs.
	processor, err := client.register(testGroup, allPartitions, newCollector().factory())
	require.NoError(t, err)

	require.NoError(t, client.Close(t.Context()))

	require.ErrorIs(t, processor.Start(t.Context()), ErrAlreadyStarted,
		"a processor stopped by Close must not start afterwards")
}

func TestConsumerClient_DifferentGroupsCoexist(t *testing.T) {
	hub := eptest.NewSimulatedHub("hub", 1)
	client := newTestClient(t, hub)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	colA, colB := newCollector(), newCollector()
	go func() { _ = client.Receive(ctx, "group-a", colA.factory()) }()
	go func() { _ = client.Receive(ctx, "group-b", colB.factory()) }()

	require.NoError(t, hub.Push("0", []byte("fanout")))

	// Both groups see the same event; ownership records are scoped per
	// group so the claims don't collide.
	require.Eventually(t, func() bool {
		return colA.totalEvents() == 1 && colB.totalEvents() == 1
	}, 5*time.Second, 20*time.Millisecond)
}
