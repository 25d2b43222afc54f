package eventproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hubflow/eventproc/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, 10*time.Second, cfg.LoadBalancingInterval)
	require.Equal(t, 30*time.Second, cfg.OwnershipTimeout)
	require.Equal(t, 10*time.Second, cfg.OperationTimeout)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, types.PositionEarliest(), cfg.InitialPosition)

	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)

		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			LoadBalancingInterval: 3 * time.Second,
			OwnershipTimeout:      time.Minute,
			OperationTimeout:      20 * time.Second,
			ShutdownTimeout:       15 * time.Second,
			InitialPosition:       types.PositionLatest(),
		}
		SetDefaults(&cfg)

		require.Equal(t, 3*time.Second, cfg.LoadBalancingInterval)
		require.Equal(t, time.Minute, cfg.OwnershipTimeout)
		require.Equal(t, 20*time.Second, cfg.OperationTimeout)
		require.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
		require.Equal(t, types.PositionLatest(), cfg.InitialPosition)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("zero balancing interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LoadBalancingInterval = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("ownership timeout below twice the interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OwnershipTimeout = cfg.LoadBalancingInterval
		require.Error(t, cfg.Validate())

		cfg.OwnershipTimeout = 2 * cfg.LoadBalancingInterval
		require.NoError(t, cfg.Validate())
	})

	t.Run("zero operation timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OperationTimeout = 0
		require.Error(t, cfg.Validate())
	})
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	require.NoError(t, cfg.Validate())
	require.Less(t, cfg.LoadBalancingInterval, DefaultConfig().LoadBalancingInterval)
	require.GreaterOrEqual(t, cfg.OwnershipTimeout, 2*cfg.LoadBalancingInterval)
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialPosition = types.PositionFromOffset("1000")

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, cfg, decoded)
}
