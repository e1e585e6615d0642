package config

import (
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml"
)

const (
	// Configuration file name
	ConfigFile = "config.toml"
	// Default directory holding the config file and wallet store
	DefaultRepoDir = "~/.aptokit"
)

// NetworkConfig maps a named network to its endpoints.
type NetworkConfig struct {
	Name       string
	ChainID    uint8
	NodeURL    string
	IndexerURL string
	FaucetURL  string
}

var (
	Mainnet = NetworkConfig{
		Name:    "mainnet",
		ChainID: 1,
		NodeURL: "https://fullnode.mainnet.aptoslabs.com/v1",
	}
	Testnet = NetworkConfig{
		Name:      "testnet",
		ChainID:   2,
		NodeURL:   "https://fullnode.testnet.aptoslabs.com/v1",
		FaucetURL: "https://faucet.testnet.aptoslabs.com",
	}
	Devnet = NetworkConfig{
		Name:      "devnet",
		NodeURL:   "https://fullnode.devnet.aptoslabs.com/v1",
		FaucetURL: "https://faucet.devnet.aptoslabs.com",
	}
	Localnet = NetworkConfig{
		Name:      "localnet",
		ChainID:   4,
		NodeURL:   "http://127.0.0.1:8080/v1",
		FaucetURL: "http://127.0.0.1:8081",
	}
)

// NamedNetworks maps network name to its config.
var NamedNetworks = map[string]NetworkConfig{
	Mainnet.Name:  Mainnet,
	Testnet.Name:  Testnet,
	Devnet.Name:   Devnet,
	Localnet.Name: Localnet,
}

type WalletConfig struct {
	// Directory holding the persisted provider selection
	StoreDir string
}

type PollConfig struct {
	EventInterval   time.Duration
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
}

type Config struct {
	Network *NetworkConfig
	Wallet  *WalletConfig
	Poll    *PollConfig
}

func DefaultConfig() *Config {
	net := Devnet
	return &Config{
		Network: &net,
		Wallet:  &WalletConfig{StoreDir: DefaultRepoDir},
		Poll: &PollConfig{
			EventInterval:   3 * time.Second,
			ConfirmTimeout:  30 * time.Second,
			ConfirmInterval: time.Second,
		},
	}
}

func ReadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	err = toml.Unmarshal(data, cfg)

	return cfg, err
}

func WriteConfig(filePath string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// RepoPath expands the configured repo dir, resolving a leading ~.
func RepoPath(dir string) (string, error) {
	return homedir.Expand(dir)
}
