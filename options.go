package eventproc

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Option configures a ConsumerClient with optional dependencies.
type Option func(*clientOptions)

// clientOptions holds optional ConsumerClient configuration.
type clientOptions struct {
	logger         Logger
	metrics        MetricsCollector
	tracerProvider trace.TracerProvider
	ownerID        string
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewConsumerClient
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	client, err := eventproc.NewConsumerClient(cfg, transport, store, eventproc.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewConsumerClient
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *clientOptions) {
		o.metrics = metrics
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used to trace
// ProcessEvents invocations. Defaults to a no-op provider.
//
// Parameters:
//   - tp: Tracer provider
//
// Returns:
//   - Option: Functional option for NewConsumerClient
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) {
		o.tracerProvider = tp
	}
}

// WithOwnerID overrides the generated owner identity.
//
// Owner ids must be unique per processor instance; reusing an id across
// live instances breaks ownership fencing. Useful for tests and for
// deployments that want stable, human-readable identities.
//
// Parameters:
//   - ownerID: Identity to claim partitions as
//
// Returns:
//   - Option: Functional option for NewConsumerClient
func WithOwnerID(ownerID string) Option {
	return func(o *clientOptions) {
		o.ownerID = ownerID
	}
}

func defaultTracerProvider() trace.TracerProvider {
	return noop.NewTracerProvider()
}
