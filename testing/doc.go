// Package testing provides test utilities for the eventproc library.
//
// This package offers helpers for setting up test environments: embedded
// NATS servers for checkpoint store integration tests and an in-memory
// event hub transport for exercising processors without a broker. It
// follows Go's convention of providing testing utilities in a dedicated
// package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewSimulatedHub: In-memory EventHubClient with pushable partitions
//   - NewTestLogger: Logger writing through testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    eptest "github.com/hubflow/eventproc/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := eptest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
