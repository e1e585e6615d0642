package cmds

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/aptokit/aptokit"
	"github.com/aptokit/aptokit/config"
	"github.com/aptokit/aptokit/wallet"
	"github.com/aptokit/aptokit/wallet/remote"
)

var log = logging.Logger("cmds")

// RepoFlag points every command at the directory holding config.toml and the
// wallet store.
var RepoFlag = &cli.StringFlag{
	Name:    "repo",
	Usage:   "directory holding the config file and wallet store",
	Value:   config.DefaultRepoDir,
	EnvVars: []string{"APTOKIT_REPO"},
}

// NetworkFlag overrides the configured network by name.
var NetworkFlag = &cli.StringFlag{
	Name:  "network",
	Usage: "named network to target (mainnet/testnet/devnet/localnet)",
}

// WalletURLFlag points signing commands at a remote wallet daemon.
var WalletURLFlag = &cli.StringFlag{
	Name:  "wallet-url",
	Usage: "websocket url of a wallet daemon used for signing",
}

func loadConfig(cctx *cli.Context) (*config.Config, string, error) {
	repo, err := config.RepoPath(cctx.String("repo"))
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(repo, config.ConfigFile)
	cfg, err := config.ReadConfig(path)
	if err != nil {
		log.Debugf("no config at %s, using defaults: %s", path, err)
		cfg = config.DefaultConfig()
	}
	if name := cctx.String("network"); name != "" {
		net, ok := config.NamedNetworks[name]
		if !ok {
			return nil, "", fmt.Errorf("unknown network %q", name)
		}
		cfg.Network = &net
	}
	return cfg, path, nil
}

// newSDK assembles an SDK for one command invocation. When a wallet daemon
// url is given, the remote provider is started and registered so signing
// commands can connect to it.
func newSDK(cctx *cli.Context) (*aptokit.SDK, func(), error) {
	cfg, _, err := loadConfig(cctx)
	if err != nil {
		return nil, nil, err
	}

	var opts []aptokit.Option
	var provider *remote.Provider
	if url := cctx.String("wallet-url"); url != "" {
		zlog, err := zap.NewProduction()
		if err != nil {
			return nil, nil, err
		}
		provider = remote.New(url, wallet.Info{ID: "remote", Name: "Remote Wallet"}, zlog.Sugar())
		if err := provider.Start(cctx.Context); err != nil {
			return nil, nil, err
		}
		opts = append(opts, aptokit.WithProviders(provider))
	}

	sdk, err := aptokit.New(cfg, opts...)
	if err != nil {
		if provider != nil {
			provider.Close()
		}
		return nil, nil, err
	}
	closer := func() {
		sdk.Close()
		if provider != nil {
			provider.Close()
		}
	}
	return sdk, closer, nil
}

// connectWallet connects either the persisted provider or the one named on
// the command line.
func connectWallet(cctx *cli.Context, sdk *aptokit.SDK) error {
	if id := cctx.String("provider"); id != "" {
		return sdk.Wallet().Connect(cctx.Context, id)
	}
	if err := sdk.Wallet().AutoConnect(cctx.Context); err != nil {
		return err
	}
	if sdk.Wallet().State() != wallet.Connected {
		return fmt.Errorf("no wallet connected; pass --provider or connect once first")
	}
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, " ", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
