package cmds

import (
	"github.com/urfave/cli/v2"
)

var WalletCmds = &cli.Command{
	Name:        "wallet",
	Usage:       "wallet cmds",
	Subcommands: []*cli.Command{listProvidersCmds, walletStateCmds, walletConnectCmds, walletDisconnectCmds},
}

var listProvidersCmds = &cli.Command{
	Name:  "providers",
	Usage: "list detected wallet providers",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		return printJSON(sdk.Wallet().DetectProviders())
	},
}

var walletStateCmds = &cli.Command{
	Name:  "state",
	Usage: "show the wallet connection state",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := sdk.Wallet().AutoConnect(cctx.Context); err != nil {
			return err
		}
		state := sdk.Wallet().WalletState()
		out := map[string]interface{}{
			"state":     sdk.Wallet().State().String(),
			"connected": state.Connected,
			"address":   state.Address,
		}
		if info, ok := sdk.WalletInfo(); ok {
			out["provider"] = info.ID
		}
		return printJSON(out)
	},
}

var walletConnectCmds = &cli.Command{
	Name:      "connect",
	Usage:     "connect a wallet provider and persist the selection",
	ArgsUsage: "provider-id",
	Flags:     []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		providerID := cctx.Args().Get(0)
		if err := sdk.Wallet().Connect(cctx.Context, providerID); err != nil {
			return err
		}
		return printJSON(sdk.Wallet().WalletState())
	},
}

var walletDisconnectCmds = &cli.Command{
	Name:  "disconnect",
	Usage: "disconnect the current wallet",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := sdk.Wallet().AutoConnect(cctx.Context); err != nil {
			return err
		}
		return sdk.Wallet().Disconnect(cctx.Context)
	},
}
