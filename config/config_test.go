package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)

	cfg := DefaultConfig()
	cfg.Network.Name = "localnet"
	cfg.Network.NodeURL = "http://127.0.0.1:8080/v1"
	cfg.Poll.EventInterval = 5 * time.Second

	require.NoError(t, WriteConfig(path, cfg))

	got, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Network.Name, got.Network.Name)
	require.Equal(t, cfg.Network.NodeURL, got.Network.NodeURL)
	require.Equal(t, 5*time.Second, got.Poll.EventInterval)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "devnet", cfg.Network.Name)
	require.Equal(t, 3*time.Second, cfg.Poll.EventInterval)
	require.Equal(t, 30*time.Second, cfg.Poll.ConfirmTimeout)
	require.Equal(t, time.Second, cfg.Poll.ConfirmInterval)
}

func TestNamedNetworks(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "devnet", "localnet"} {
		net, ok := NamedNetworks[name]
		require.True(t, ok, name)
		require.NotEmpty(t, net.NodeURL)
	}
}
