package eventproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/hubflow/eventproc/internal/logging"
	"github.com/hubflow/eventproc/internal/metrics"
	"github.com/hubflow/eventproc/internal/ownership"
	"github.com/hubflow/eventproc/types"
)

// ProcessorFactory creates the PartitionProcessor for one claimed
// partition. It is invoked once per partition per ownership span, so
// returned processors may keep per-partition state without synchronization.
type ProcessorFactory func() types.PartitionProcessor

// EventProcessor consumes an event hub by balancing partition ownership
// with other instances sharing the same checkpoint store.
//
// Each instance runs a balancing round every LoadBalancingInterval: it
// claims its fair share of partitions through the store, starts a receive
// goroutine for every newly claimed partition, and cancels goroutines for
// partitions it no longer holds. A failed round is logged and retried on
// the next interval; partitions owned before the failure keep processing.
//
// Most applications use ConsumerClient instead, which manages processors
// per Receive call. EventProcessor is the building block underneath.
type EventProcessor struct {
	cfg           Config
	transport     types.EventHubClient
	store         types.CheckpointStore
	consumerGroup string
	factory       ProcessorFactory
	ownership     *ownership.Manager

	logger  types.Logger
	metrics types.MetricsCollector
	tracer  trace.Tracer

	// mu guards the lifecycle transitions below. Start and Stop may be
	// called from different goroutines (ConsumerClient does exactly that),
	// so the flags and cancel func must move together.
	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	tasks *xsync.Map[string, *partitionTask]
	wg    sync.WaitGroup
	done  chan struct{}
}

// NewEventProcessor creates a processor for one event hub / consumer group
// pair.
//
// The processor is inert until Start is called. Its owner identity is a
// fresh UUID unless WithOwnerID overrides it.
//
// Parameters:
//   - cfg: Configuration (zero fields are filled with defaults)
//   - transport: Event hub client used for partition discovery and consumers
//   - store: Shared checkpoint store coordinating the instance fleet
//   - consumerGroup: Consumer group to read as
//   - factory: Creates the PartitionProcessor for each claimed partition
//   - opts: Optional logger, metrics, tracer, owner id
//
// Returns:
//   - *EventProcessor: Configured processor
//   - error: ErrTransportRequired, ErrStoreRequired, ErrProcessorRequired,
//     or ErrInvalidConfig
func NewEventProcessor(cfg Config, transport types.EventHubClient, store types.CheckpointStore, consumerGroup string, factory ProcessorFactory, opts ...Option) (*EventProcessor, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if factory == nil {
		return nil, ErrProcessorRequired
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
	if options.ownerID == "" {
		options.ownerID = uuid.NewString()
	}

	p := &EventProcessor{
		cfg:           cfg,
		transport:     transport,
		store:         store,
		consumerGroup: consumerGroup,
		factory:       factory,
		logger:        options.logger,
		metrics:       options.metrics,
		tracer:        options.tracerProvider.Tracer("github.com/hubflow/eventproc"),
		tasks:         xsync.NewMap[string, *partitionTask](),
		done:          make(chan struct{}),
	}

	p.ownership = ownership.New(
		transport, store,
		transport.EventHubName(), consumerGroup, options.ownerID,
		cfg.OwnershipTimeout, options.logger,
	)
	p.ownership.SetMetrics(options.metrics)

	return p, nil
}

// OwnerID returns the identity this processor claims partitions as.
func (p *EventProcessor) OwnerID() string {
	return p.ownership.OwnerID()
}

// Done returns a channel closed when the processor's balancing loop has
// exited and all partition goroutines were asked to stop.
func (p *EventProcessor) Done() <-chan struct{} {
	return p.done
}

// Start launches the balancing loop in the background.
//
// The given ctx only bounds Start itself; the loop runs until Stop. A
// processor is single-use: once stopped, even if it never ran, it cannot
// be started again.
//
// Returns:
//   - error: ErrAlreadyStarted if Start was already called or the
//     processor was already stopped
func (p *EventProcessor) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return ErrAlreadyStarted
	}
	p.started = true

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(runCtx)

	p.logger.Info("event processor started",
		"event_hub", p.transport.EventHubName(),
		"consumer_group", p.consumerGroup,
		"owner_id", p.OwnerID(),
	)

	return nil
}

// Stop cancels the balancing loop and every partition goroutine, then
// waits for them to unwind.
//
// Waiting is bounded by ShutdownTimeout and by ctx; goroutines still
// running afterwards are abandoned with a warning. Partition processors
// see Close with ReasonShutdown.
//
// Stopping a processor that never started also marks it stopped, so a
// racing Start afterwards cannot resurrect it.
//
// Parameters:
//   - ctx: Additional bound on the wait
//
// Returns:
//   - error: ErrNotStarted if the processor is not running
func (p *EventProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()

		return ErrNotStarted
	}
	p.stopped = true
	started := p.started
	if started {
		p.cancel()
	}
	p.mu.Unlock()

	if !started {
		return ErrNotStarted
	}

	waited := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(p.cfg.ShutdownTimeout):
		p.logger.Warn("shutdown timeout exceeded, some goroutines may still be running",
			"owner_id", p.OwnerID(),
		)
	case <-ctx.Done():
		p.logger.Warn("shutdown wait cancelled",
			"owner_id", p.OwnerID(),
			"error", ctx.Err(),
		)
	}

	p.logger.Info("event processor stopped", "owner_id", p.OwnerID())

	return nil
}

// run is the balancing loop: one round immediately, then one per interval.
func (p *EventProcessor) run(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.done)

	for {
		p.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.LoadBalancingInterval):
		}
	}
}

// runOnce performs a single balancing round and reconciles the partition
// goroutines with its outcome.
func (p *EventProcessor) runOnce(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	claimed, err := p.ownership.ClaimOwnership(opCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return
		}

		// The round is retried on the next interval; partitions claimed in
		// previous rounds keep processing until their records expire.
		p.logger.Error("balancing round failed",
			"owner_id", p.OwnerID(),
			"error", err,
		)
		p.metrics.RecordClaimFailure()

		return
	}

	p.reconcile(ctx, claimed)
}

// reconcile aligns the running partition goroutines with the claimed set:
// goroutines for unclaimed partitions are cancelled as lost, and newly
// claimed partitions get fresh ones.
func (p *EventProcessor) reconcile(ctx context.Context, claimed []types.Ownership) {
	owned := make(map[string]types.Ownership, len(claimed))
	for _, rec := range claimed {
		owned[rec.PartitionID] = rec
	}

	p.tasks.Range(func(partitionID string, task *partitionTask) bool {
		if _, ok := owned[partitionID]; !ok {
			task.markLost()
		}

		return true
	})

	for partitionID, rec := range owned {
		// A task cancelled this round (or exited on error) removes itself
		// from the map; until it has, the partition is not restarted.
		if _, exists := p.tasks.Load(partitionID); !exists {
			p.startPartition(ctx, rec)
		}
	}

	p.metrics.RecordOwnedPartitions(len(claimed))
}
