package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/aptokit/aptokit/cmds"
	"github.com/aptokit/aptokit/version"
)

var log = logging.Logger("main")

func main() {
	_ = logging.SetLogLevel("*", "INFO")

	app := &cli.App{
		Name:  "aptokit",
		Usage: "wallet, transaction and event tooling for a Move-style chain",
		Flags: []cli.Flag{
			cmds.RepoFlag,
			cmds.NetworkFlag,
			cmds.WalletURLFlag,
		},
		Commands: []*cli.Command{
			cmds.WalletCmds, cmds.TxnCmds, cmds.EventsCmds, cmds.ConfigCmds,
		},
	}
	app.Version = version.UserVersion
	if err := app.Run(os.Args); err != nil {
		log.Warn(err)
		os.Exit(1)
	}
}
