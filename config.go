package eventproc

import (
	"fmt"
	"time"

	"github.com/hubflow/eventproc/types"
)

// Config is the configuration for the ConsumerClient and its processors.
type Config struct {
	// LoadBalancingInterval is the pause between balancing rounds. Each
	// round claims at most one additional partition, so smaller values
	// converge faster at the cost of more store traffic.
	// Recommended: 10 seconds.
	LoadBalancingInterval time.Duration `yaml:"loadBalancingInterval"`

	// OwnershipTimeout is how long an ownership record stays fresh after
	// its last claim. A record older than this is reclaimable by any
	// instance, so the value bounds how long a crashed instance's
	// partitions stay orphaned. Must be at least 2x
	// LoadBalancingInterval so a healthy owner always refreshes in time.
	// Recommended: 3x LoadBalancingInterval.
	OwnershipTimeout time.Duration `yaml:"ownershipTimeout"`

	// OperationTimeout bounds individual store and transport control
	// operations (list, claim, consumer open).
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// ShutdownTimeout is the grace period Stop waits for per-partition
	// receive loops to unwind after cancellation. Loops still running
	// when it expires are abandoned; shutdown is best-effort, not
	// guaranteed-bounded.
	// Recommended: 5 seconds.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// InitialPosition is where a partition consumer starts when the
	// partition has no checkpoint yet. A persisted checkpoint always
	// wins over this value.
	InitialPosition types.EventPosition `yaml:"initialPosition"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		LoadBalancingInterval: 10 * time.Second,
		OwnershipTimeout:      30 * time.Second,
		OperationTimeout:      10 * time.Second,
		ShutdownTimeout:       5 * time.Second,
		InitialPosition:       types.PositionEarliest(),
	}
}

// SetDefaults fills in missing configuration values with production
// defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.LoadBalancingInterval == 0 {
		cfg.LoadBalancingInterval = defaults.LoadBalancingInterval
	}
	if cfg.OwnershipTimeout == 0 {
		cfg.OwnershipTimeout = defaults.OwnershipTimeout
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.InitialPosition == (types.EventPosition{}) {
		cfg.InitialPosition = defaults.InitialPosition
	}
}

// Validate checks configuration constraints and returns an error for
// invalid values.
//
// Rules:
//   - LoadBalancingInterval > 0
//   - OwnershipTimeout >= 2 * LoadBalancingInterval (owner must be able
//     to refresh before its records expire)
//   - OperationTimeout > 0
//
// Returns:
//   - error: Validation error with explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.LoadBalancingInterval <= 0 {
		return fmt.Errorf("LoadBalancingInterval must be > 0, got %v", cfg.LoadBalancingInterval)
	}

	if cfg.OwnershipTimeout < 2*cfg.LoadBalancingInterval {
		return fmt.Errorf(
			"OwnershipTimeout (%v) must be >= 2*LoadBalancingInterval (%v) so owners refresh before expiry",
			cfg.OwnershipTimeout, cfg.LoadBalancingInterval,
		)
	}

	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}

	return nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Timings are 100-200x faster than production defaults. Use
// DefaultConfig() for deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.LoadBalancingInterval = 50 * time.Millisecond
	cfg.OwnershipTimeout = 500 * time.Millisecond
	cfg.OperationTimeout = 2 * time.Second
	cfg.ShutdownTimeout = 1 * time.Second

	return cfg
}
