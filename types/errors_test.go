package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	t.Run("preserves cause", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := WrapError(cause, ErrNetwork, "submit to %s failed", "http://node")
		require.Equal(t, ErrNetwork, err.Code)
		require.ErrorIs(t, err, cause)
		require.Contains(t, err.Error(), "NETWORK_ERROR")
		require.Contains(t, err.Error(), "connection refused")
	})

	t.Run("nil in nil out", func(t *testing.T) {
		require.Nil(t, WrapError(nil, ErrNetwork, "nothing"))
	})
}

func TestCodeOf(t *testing.T) {
	err := NewError(ErrWalletNotFound, "provider %s not detected", "providerA")
	require.Equal(t, ErrWalletNotFound, CodeOf(err))
	require.True(t, IsCode(err, ErrWalletNotFound))

	// code survives further wrapping
	wrapped := fmt.Errorf("outer: %w", err)
	require.Equal(t, ErrWalletNotFound, CodeOf(wrapped))

	require.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestDetails(t *testing.T) {
	err := NewError(ErrWalletNotFound, "provider not detected").
		WithDetail("provider", "providerA").
		WithDetail("detected", []string{"providerB", "providerC"})
	require.Equal(t, "providerA", err.Detail("provider"))
	require.Equal(t, []string{"providerB", "providerC"}, err.Detail("detected"))
	require.Nil(t, err.Detail("missing"))
}
