package testing

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hubflow/eventproc/types"
)

// SimulatedHub is an in-memory EventHubClient for tests and examples.
//
// Each partition keeps an append-only event log; Push appends events and
// wakes blocked consumers. Offsets are the decimal sequence numbers, so a
// checkpointed offset resumes exactly after the last processed event.
//
// All methods are safe for concurrent use.
type SimulatedHub struct {
	name       string
	partitions map[string]*simPartition
	ids        []string

	openConsumers atomic.Int64
}

type simPartition struct {
	mu     sync.Mutex
	events []*types.EventData
	notify chan struct{}

	// recvErr is returned (and cleared) by the next Receive on this
	// partition; used to exercise transport failure handling.
	recvErr error
}

// Compile-time assertion that SimulatedHub implements EventHubClient.
var _ types.EventHubClient = (*SimulatedHub)(nil)

// NewSimulatedHub creates a hub with the given name and partition count.
// Partition ids are "0" through strconv.Itoa(partitionCount-1).
func NewSimulatedHub(name string, partitionCount int) *SimulatedHub {
	hub := &SimulatedHub{
		name:       name,
		partitions: make(map[string]*simPartition, partitionCount),
	}
	for i := range partitionCount {
		id := strconv.Itoa(i)
		hub.ids = append(hub.ids, id)
		hub.partitions[id] = &simPartition{notify: make(chan struct{})}
	}

	return hub
}

// EventHubName returns the hub's name.
func (h *SimulatedHub) EventHubName() string { return h.name }

// GetPartitionIDs returns all partition ids.
func (h *SimulatedHub) GetPartitionIDs(_ context.Context) ([]string, error) {
	ids := make([]string, len(h.ids))
	copy(ids, h.ids)

	return ids, nil
}

// Push appends events with the given bodies to a partition and wakes any
// blocked consumers.
func (h *SimulatedHub) Push(partitionID string, bodies ...[]byte) error {
	p, ok := h.partitions[partitionID]
	if !ok {
		return fmt.Errorf("unknown partition %q", partitionID)
	}

	p.mu.Lock()
	for _, body := range bodies {
		seq := int64(len(p.events))
		p.events = append(p.events, &types.EventData{
			Body:           body,
			Offset:         strconv.FormatInt(seq, 10),
			SequenceNumber: seq,
			EnqueuedTime:   time.Now(),
		})
	}
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()

	return nil
}

// InjectReceiveError makes the next Receive on the partition fail with the
// given error, once.
func (h *SimulatedHub) InjectReceiveError(partitionID string, err error) {
	p, ok := h.partitions[partitionID]
	if !ok {
		return
	}

	p.mu.Lock()
	p.recvErr = err
	close(p.notify)
	p.notify = make(chan struct{})
	p.mu.Unlock()
}

// OpenConsumers returns the number of consumers created and not yet
// closed, across all partitions.
func (h *SimulatedHub) OpenConsumers() int {
	return int(h.openConsumers.Load())
}

// CreateConsumer opens a consumer on one partition at the given position.
func (h *SimulatedHub) CreateConsumer(_ context.Context, _ /* consumerGroup */, partitionID string, position types.EventPosition) (types.PartitionConsumer, error) {
	p, ok := h.partitions[partitionID]
	if !ok {
		return nil, fmt.Errorf("unknown partition %q", partitionID)
	}

	p.mu.Lock()
	next, err := resolvePosition(position, p.events)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h.openConsumers.Add(1)

	return &simConsumer{hub: h, partition: p, next: next}, nil
}

// resolvePosition maps an EventPosition to the index of the first event to
// deliver.
func resolvePosition(position types.EventPosition, events []*types.EventData) (int64, error) {
	switch position.Offset {
	case types.OffsetEarliest:
		return 0, nil
	case types.OffsetLatest:
		return int64(len(events)), nil
	case "":
		// Resume after the sequence number.
		return position.SequenceNumber + 1, nil
	default:
		off, err := strconv.ParseInt(position.Offset, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q: %w", position.Offset, err)
		}

		// Resume after the checkpointed offset.
		return off + 1, nil
	}
}

type simConsumer struct {
	hub       *SimulatedHub
	partition *simPartition
	next      int64
	closed    atomic.Bool
}

// Receive blocks until events past the consumer's position exist, then
// returns them all.
func (c *simConsumer) Receive(ctx context.Context) ([]*types.EventData, error) {
	for {
		if c.closed.Load() {
			return nil, fmt.Errorf("consumer is closed")
		}

		c.partition.mu.Lock()
		if err := c.partition.recvErr; err != nil {
			c.partition.recvErr = nil
			c.partition.mu.Unlock()

			return nil, err
		}

		if c.next < int64(len(c.partition.events)) {
			batch := make([]*types.EventData, int64(len(c.partition.events))-c.next)
			copy(batch, c.partition.events[c.next:])
			c.next = int64(len(c.partition.events))
			c.partition.mu.Unlock()

			return batch, nil
		}

		notify := c.partition.notify
		c.partition.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-notify:
		}
	}
}

// Close marks the consumer closed. Closing twice is an error, matching the
// PartitionConsumer contract.
func (c *simConsumer) Close(_ context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("consumer already closed")
	}

	c.hub.openConsumers.Add(-1)

	return nil
}
