package eventproc

import "github.com/hubflow/eventproc/types"

// Re-export types from the internal types package.
//
// This file provides a stable public API for the library's core types and
// interfaces. It uses type aliases to re-export definitions from the
// `types` subpackage, which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing internal
// packages to depend on `types` without depending on the root `eventproc`
// package, while still providing a convenient `eventproc.Ownership`,
// `eventproc.Logger`, etc. for users.
type (
	Ownership        = types.Ownership
	EventData        = types.EventData
	EventPosition    = types.EventPosition
	CloseReason      = types.CloseReason
	PartitionContext = types.PartitionContext
)

// Re-export interfaces from the internal types package for convenience.
type (
	CheckpointStore    = types.CheckpointStore
	EventHubClient     = types.EventHubClient
	PartitionConsumer  = types.PartitionConsumer
	PartitionProcessor = types.PartitionProcessor
	NopProcessor       = types.NopProcessor
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
)

// Re-export CloseReason constants from the internal types package.
const (
	ReasonShutdown           = types.ReasonShutdown
	ReasonOwnershipLost      = types.ReasonOwnershipLost
	ReasonEventHubError      = types.ReasonEventHubError
	ReasonProcessEventsError = types.ReasonProcessEventsError
)

// Re-export special offsets and position constructors.
const (
	OffsetEarliest = types.OffsetEarliest
	OffsetLatest   = types.OffsetLatest
)

var (
	PositionEarliest   = types.PositionEarliest
	PositionLatest     = types.PositionLatest
	PositionFromOffset = types.PositionFromOffset
)
