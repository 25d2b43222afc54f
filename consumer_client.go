package eventproc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hubflow/eventproc/internal/logging"
	"github.com/hubflow/eventproc/internal/metrics"
	"github.com/hubflow/eventproc/types"
)

// allPartitions marks a registry entry that spans every partition of a
// consumer group.
const allPartitions = "-1"

// receiverKey identifies one active Receive call on a client.
type receiverKey struct {
	consumerGroup string
	partitionID   string
}

// ConsumerClient is the high-level entry point for consuming an event hub.
//
// Each Receive call runs an EventProcessor until its context is cancelled
// or the client is closed. The client enforces that a consumer group /
// partition combination is consumed at most once per client: an
// all-partition Receive blocks single-partition ones for the same group
// and vice versa.
type ConsumerClient struct {
	cfg       Config
	transport types.EventHubClient
	store     types.CheckpointStore
	options   clientOptions

	mu        sync.Mutex
	closed    bool
	receivers map[receiverKey]*EventProcessor
}

// NewConsumerClient creates a client over the given transport and
// checkpoint store.
//
// Parameters:
//   - cfg: Configuration (zero fields are filled with defaults)
//   - transport: Event hub client
//   - store: Checkpoint store shared by cooperating instances
//   - opts: Optional logger, metrics, tracer, owner id
//
// Returns:
//   - *ConsumerClient: Ready client
//   - error: ErrTransportRequired, ErrStoreRequired, or ErrInvalidConfig
//
// Example:
//
//	store, err := store.NewNATSKV(ctx, js, "eventproc-checkpoints", logger)
//	if err != nil {
//	    return err
//	}
//	client, err := eventproc.NewConsumerClient(eventproc.DefaultConfig(), hub, store,
//	    eventproc.WithLogger(logger))
func NewConsumerClient(cfg Config, transport types.EventHubClient, store types.CheckpointStore, opts ...Option) (*ConsumerClient, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := clientOptions{
		logger:         logging.NewNop(),
		metrics:        metrics.NewNop(),
		tracerProvider: defaultTracerProvider(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &ConsumerClient{
		cfg:       cfg,
		transport: transport,
		store:     store,
		options:   options,
		receivers: make(map[receiverKey]*EventProcessor),
	}, nil
}

// EventHubName returns the event hub this client consumes.
func (c *ConsumerClient) EventHubName() string {
	return c.transport.EventHubName()
}

// GetPartitionIDs returns the partition ids of the event hub.
func (c *ConsumerClient) GetPartitionIDs(ctx context.Context) ([]string, error) {
	return c.transport.GetPartitionIDs(ctx)
}

// Receive consumes all partitions of the event hub as the given consumer
// group, balancing ownership with other instances on the same store.
//
// Blocks until ctx is cancelled or the client is closed, then shuts the
// underlying processor down and returns. Partition processors see Close
// with ReasonShutdown on the way out.
//
// Parameters:
//   - ctx: Governs the lifetime of the receive
//   - consumerGroup: Consumer group to read as
//   - factory: Creates the PartitionProcessor for each claimed partition
//
// Returns:
//   - error: ErrReceiveInProgress if the group is already being consumed,
//     ErrClientClosed, or a processor construction error
func (c *ConsumerClient) Receive(ctx context.Context, consumerGroup string, factory ProcessorFactory) error {
	return c.receive(ctx, consumerGroup, allPartitions, factory)
}

// ReceivePartition consumes a single partition of the event hub as the
// given consumer group, without load balancing: ownership of that one
// partition is still claimed (and refreshed) through the store so
// checkpoint fencing works, but no other partitions are touched.
//
// Blocks like Receive.
//
// Parameters:
//   - ctx: Governs the lifetime of the receive
//   - consumerGroup: Consumer group to read as
//   - partitionID: Partition to consume
//   - factory: Creates the PartitionProcessor for the partition
//
// Returns:
//   - error: ErrReceiveInProgress if the partition (or the whole group) is
//     already being consumed, ErrClientClosed, or a construction error
func (c *ConsumerClient) ReceivePartition(ctx context.Context, consumerGroup, partitionID string, factory ProcessorFactory) error {
	return c.receive(ctx, consumerGroup, partitionID, factory)
}

func (c *ConsumerClient) receive(ctx context.Context, consumerGroup, partitionID string, factory ProcessorFactory) error {
	processor, err := c.register(consumerGroup, partitionID, factory)
	if err != nil {
		return err
	}

	if err := processor.Start(ctx); err != nil {
		c.unregister(consumerGroup, partitionID)

		// Close may have stopped the registered processor before Start ran;
		// the stop latch makes that Start fail rather than resurrect it.
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return ErrClientClosed
		}

		return err
	}

	select {
	case <-ctx.Done():
	case <-processor.Done():
		// Close() stopped the processor underneath us.
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()
	_ = processor.Stop(stopCtx)

	c.unregister(consumerGroup, partitionID)

	return nil
}

// register reserves the consumer group / partition slot and builds its
// processor while holding the registry lock.
func (c *ConsumerClient) register(consumerGroup, partitionID string, factory ProcessorFactory) (*EventProcessor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	key := receiverKey{consumerGroup: consumerGroup, partitionID: partitionID}
	if _, exists := c.receivers[key]; exists {
		return nil, ErrReceiveInProgress
	}
	// An all-partition receive conflicts with any single-partition one in
	// the same group, and vice versa.
	if partitionID == allPartitions {
		for other := range c.receivers {
			if other.consumerGroup == consumerGroup {
				return nil, ErrReceiveInProgress
			}
		}
	} else if _, exists := c.receivers[receiverKey{consumerGroup: consumerGroup, partitionID: allPartitions}]; exists {
		return nil, ErrReceiveInProgress
	}

	opts := []Option{
		WithLogger(c.options.logger),
		WithMetrics(c.options.metrics),
		WithTracerProvider(c.options.tracerProvider),
	}
	if c.options.ownerID != "" {
		opts = append(opts, WithOwnerID(c.options.ownerID))
	}

	processor, err := NewEventProcessor(c.cfg, c.transport, c.store, consumerGroup, factory, opts...)
	if err != nil {
		return nil, err
	}

	if partitionID != allPartitions {
		processor.ownership.SetPartitionIDs([]string{partitionID})
	}

	c.receivers[key] = processor

	return processor, nil
}

func (c *ConsumerClient) unregister(consumerGroup, partitionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.receivers, receiverKey{consumerGroup: consumerGroup, partitionID: partitionID})
}

// Close stops every active receive and marks the client unusable.
//
// Safe to call concurrently with blocked Receive calls; they observe the
// shutdown and return. Subsequent Receive calls fail with ErrClientClosed.
//
// Parameters:
//   - ctx: Bounds the wait for processor shutdown
//
// Returns:
//   - error: First processor stop error, if any
func (c *ConsumerClient) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}
	c.closed = true

	processors := make([]*EventProcessor, 0, len(c.receivers))
	for _, p := range c.receivers {
		processors = append(processors, p)
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range processors {
		g.Go(func() error {
			// The blocked Receive may win the race to stop this processor.
			if err := p.Stop(gctx); err != nil && !errors.Is(err, ErrNotStarted) {
				return err
			}

			return nil
		})
	}

	return g.Wait()
}
