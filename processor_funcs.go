package eventproc

import (
	"context"

	"github.com/hubflow/eventproc/types"
)

// ProcessorFuncs adapts plain functions to the PartitionProcessor
// interface, for callers who don't need per-partition state.
//
// OnEvents is required; the other callbacks default to no-ops. The same
// ProcessorFuncs value may back every partition of a processor, so the
// functions must be safe for concurrent calls from different partitions:
//
//	client.Receive(ctx, "$Default", eventproc.ProcessorFuncs{
//	    OnEvents: func(ctx context.Context, events []*eventproc.EventData, partition *eventproc.PartitionContext) error {
//	        for _, ev := range events {
//	            handle(ev)
//	        }
//	        last := events[len(events)-1]
//	        return partition.UpdateCheckpoint(ctx, last.Offset, last.SequenceNumber)
//	    },
//	}.Factory())
type ProcessorFuncs struct {
	// OnEvents handles each received batch. Required.
	OnEvents func(ctx context.Context, events []*types.EventData, partition *types.PartitionContext) error

	// OnError is notified of transport and processing failures. Optional.
	OnError func(ctx context.Context, err error, partition *types.PartitionContext)

	// OnPartitionInitialize runs before a partition's first batch. Optional.
	OnPartitionInitialize func(ctx context.Context, partition *types.PartitionContext) error

	// OnPartitionClose runs when a partition's receive loop ends. Optional.
	OnPartitionClose func(ctx context.Context, reason types.CloseReason, partition *types.PartitionContext)
}

// Compile-time assertion that ProcessorFuncs implements PartitionProcessor.
var _ types.PartitionProcessor = ProcessorFuncs{}

// Factory returns a ProcessorFactory handing out this value for every
// partition. Returns nil when OnEvents is unset, which NewEventProcessor
// rejects with ErrProcessorRequired.
func (f ProcessorFuncs) Factory() ProcessorFactory {
	if f.OnEvents == nil {
		return nil
	}

	return func() types.PartitionProcessor { return f }
}

// Initialize calls OnPartitionInitialize when set.
func (f ProcessorFuncs) Initialize(ctx context.Context, partition *types.PartitionContext) error {
	if f.OnPartitionInitialize == nil {
		return nil
	}

	return f.OnPartitionInitialize(ctx, partition)
}

// ProcessEvents calls OnEvents.
func (f ProcessorFuncs) ProcessEvents(ctx context.Context, events []*types.EventData, partition *types.PartitionContext) error {
	return f.OnEvents(ctx, events, partition)
}

// ProcessError calls OnError when set.
func (f ProcessorFuncs) ProcessError(ctx context.Context, err error, partition *types.PartitionContext) {
	if f.OnError != nil {
		f.OnError(ctx, err, partition)
	}
}

// Close calls OnPartitionClose when set.
func (f ProcessorFuncs) Close(ctx context.Context, reason types.CloseReason, partition *types.PartitionContext) {
	if f.OnPartitionClose != nil {
		f.OnPartitionClose(ctx, reason, partition)
	}
}
