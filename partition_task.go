package eventproc

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hubflow/eventproc/types"
)

// partitionTask tracks one partition's receive goroutine.
type partitionTask struct {
	partitionID string
	cancel      context.CancelFunc

	// lost is set before cancel when the cancellation means ownership was
	// relinquished rather than the whole processor stopping. The receive
	// goroutine reads it to pick the right close reason.
	lost atomic.Bool
}

// markLost cancels the task because this instance no longer owns the
// partition.
func (t *partitionTask) markLost() {
	t.lost.Store(true)
	t.cancel()
}

// startPartition launches the receive goroutine for a newly claimed
// partition.
func (p *EventProcessor) startPartition(ctx context.Context, rec types.Ownership) {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &partitionTask{partitionID: rec.PartitionID, cancel: cancel}
	p.tasks.Store(rec.PartitionID, task)

	p.logger.Info("starting partition",
		"owner_id", p.OwnerID(),
		"partition_id", rec.PartitionID,
		"offset", rec.Offset,
	)
	p.metrics.RecordPartitionStart(rec.PartitionID)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		defer p.tasks.Delete(rec.PartitionID)

		reason := p.receivePartition(taskCtx, rec, task)

		p.logger.Info("partition closed",
			"owner_id", p.OwnerID(),
			"partition_id", rec.PartitionID,
			"reason", reason.String(),
		)
		p.metrics.RecordPartitionClose(rec.PartitionID, reason)
	}()
}

// receivePartition runs the receive loop for one partition until the task
// context is cancelled or a terminal error occurs, and returns the close
// reason. The partition processor's Close is always called exactly once,
// as is the consumer's.
func (p *EventProcessor) receivePartition(ctx context.Context, rec types.Ownership, task *partitionTask) types.CloseReason {
	partition := types.NewPartitionContext(
		rec.EventHubName, rec.ConsumerGroup, rec.PartitionID,
		rec.OwnerID, p.store, p.metrics,
	)
	processor := p.factory()

	// A persisted checkpoint always wins over the configured initial
	// position.
	position := p.cfg.InitialPosition
	if rec.Offset != "" {
		position = types.PositionFromOffset(rec.Offset)
	}

	reason := types.ReasonShutdown
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownTimeout)
		defer cancel()
		processor.Close(closeCtx, reason, partition)
	}()

	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	consumer, err := p.transport.CreateConsumer(opCtx, rec.ConsumerGroup, rec.PartitionID, position)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			reason = p.cancelReason(task)

			return reason
		}

		processor.ProcessError(ctx, err, partition)
		reason = types.ReasonEventHubError

		return reason
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownTimeout)
		defer cancel()
		if err := consumer.Close(closeCtx); err != nil {
			p.logger.Warn("failed to close partition consumer",
				"partition_id", rec.PartitionID,
				"error", err,
			)
		}
	}()

	// The consumer is open before user code initializes, so Initialize can
	// rely on the partition link being established.
	if err := processor.Initialize(ctx, partition); err != nil {
		// Initialization failures do not stop the partition.
		p.logger.Warn("partition processor initialize failed",
			"partition_id", rec.PartitionID,
			"error", err,
		)
	}

	for {
		events, err := consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				reason = p.cancelReason(task)

				return reason
			}

			processor.ProcessError(ctx, err, partition)
			reason = types.ReasonEventHubError

			return reason
		}

		p.metrics.RecordBatchReceived(rec.PartitionID, len(events))

		if err := p.processBatch(ctx, processor, events, partition); err != nil {
			if ctx.Err() != nil {
				reason = p.cancelReason(task)

				return reason
			}

			if errors.Is(err, types.ErrOwnershipLost) {
				// Fencing failed mid-batch: the partition moved to another
				// instance. Not an application fault, so no ProcessError.
				reason = types.ReasonOwnershipLost

				return reason
			}

			processor.ProcessError(ctx, err, partition)
			reason = types.ReasonProcessEventsError

			return reason
		}
	}
}

// processBatch invokes the user ProcessEvents callback inside a trace span
// and records its latency.
func (p *EventProcessor) processBatch(ctx context.Context, processor types.PartitionProcessor, events []*types.EventData, partition *types.PartitionContext) error {
	spanCtx, span := p.tracer.Start(ctx, "eventproc.ProcessEvents",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.eventhub", partition.EventHubName()),
			attribute.String("messaging.consumer_group", partition.ConsumerGroup()),
			attribute.String("messaging.partition_id", partition.PartitionID()),
			attribute.Int("messaging.batch_size", len(events)),
		),
	)

	start := time.Now()
	err := processor.ProcessEvents(spanCtx, events, partition)
	p.metrics.RecordProcessDuration(partition.PartitionID(), time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
	}
	span.End()

	return err
}

// cancelReason maps a task context cancellation to a close reason:
// shutdown when the whole processor is stopping, lost ownership when only
// this partition was relinquished.
func (p *EventProcessor) cancelReason(task *partitionTask) types.CloseReason {
	if task.lost.Load() {
		return types.ReasonOwnershipLost
	}

	return types.ReasonShutdown
}
