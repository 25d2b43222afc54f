package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("errors.Is works correctly", func(t *testing.T) {
		require.True(t, errors.Is(ErrOwnershipLost, ErrOwnershipLost))
		require.False(t, errors.Is(ErrOwnershipLost, ErrClientClosed))
	})

	t.Run("wrapped errors maintain identity", func(t *testing.T) {
		wrapped := fmt.Errorf("failed to persist checkpoint for partition 3: %w", ErrOwnershipLost)
		require.True(t, errors.Is(wrapped, ErrOwnershipLost))

		joined := errors.Join(ErrReceiveInProgress, errors.New("additional context"))
		require.True(t, errors.Is(joined, ErrReceiveInProgress))
	})
}
