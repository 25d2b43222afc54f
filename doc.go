// Package eventproc provides a Go library for consuming partitioned event
// hubs with checkpointing and decentralized partition load balancing.
//
// A fleet of processor instances pointed at the same checkpoint store
// divides the partitions of an event hub among themselves without a leader
// and without talking to each other: every instance periodically runs the
// same balancing algorithm against the shared ownership records, claiming
// at most one additional partition per round, so the fleet converges to an
// even split and re-converges when instances join, leave, or crash.
//
// # Quick Start
//
//	import (
//	    "github.com/hubflow/eventproc"
//	    "github.com/hubflow/eventproc/store"
//	)
//
//	checkpoints, err := store.NewNATSKV(ctx, js, "my-app-checkpoints", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := eventproc.NewConsumerClient(eventproc.DefaultConfig(), hub, checkpoints)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	err = client.Receive(ctx, "$Default", eventproc.ProcessorFuncs{
//	    OnEvents: func(ctx context.Context, events []*eventproc.EventData, partition *eventproc.PartitionContext) error {
//	        for _, ev := range events {
//	            fmt.Printf("partition %s: %s\n", partition.PartitionID(), ev.Body)
//	        }
//	        if len(events) > 0 {
//	            last := events[len(events)-1]
//	            return partition.UpdateCheckpoint(ctx, last.Offset, last.SequenceNumber)
//	        }
//	        return nil
//	    },
//	}.Factory())
//
// # Key Features
//
//   - Decentralized balancing: no leader election, no inter-instance RPC;
//     the checkpoint store is the only coordination point
//   - Gradual convergence: each instance moves by at most one partition
//     per round, avoiding thundering-herd reclaims on cold start
//   - Crash recovery: ownership records expire after OwnershipTimeout and
//     are reclaimed by surviving instances
//   - Checkpoint fencing: a stale owner's UpdateCheckpoint fails with
//     ErrOwnershipLost instead of corrupting another instance's progress
//   - Pluggable storage: in-memory for tests, NATS JetStream KV for
//     production fleets, or any CheckpointStore implementation
//
// # Architecture
//
// ConsumerClient manages one EventProcessor per Receive call. A processor
// owns a balancing loop plus one goroutine per claimed partition; each
// partition goroutine drives a PartitionConsumer from the transport and a
// user PartitionProcessor, and reports a terminal CloseReason when it
// ends (shutdown, lost ownership, transport failure, or a processing
// error).
//
// The transport is abstracted behind EventHubClient; this module contains
// no wire protocol. See the testing package for an in-memory transport
// used throughout the test suite.
package eventproc
