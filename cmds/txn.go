package cmds

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aptokit/aptokit/txn"
	"github.com/aptokit/aptokit/types"
)

var TxnCmds = &cli.Command{
	Name:        "txn",
	Usage:       "transaction cmds",
	Subcommands: []*cli.Command{transferCmds, txnStatusCmds, txnWaitCmds, simulateCmds},
}

var providerFlag = &cli.StringFlag{
	Name:  "provider",
	Usage: "wallet provider id to connect before signing",
}

var transferCmds = &cli.Command{
	Name:      "transfer",
	Usage:     "sign and submit a native coin transfer",
	ArgsUsage: "to-address amount",
	Flags: []cli.Flag{
		providerFlag,
		&cli.StringFlag{Name: "coin-type", Usage: "coin struct type, defaults to the native coin"},
		&cli.BoolFlag{Name: "wait", Usage: "block until the transaction is confirmed"},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return fmt.Errorf("expected to-address and amount")
		}
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()
		if err := connectWallet(cctx, sdk); err != nil {
			return err
		}

		amount, err := strconv.ParseUint(cctx.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("malformed amount %q: %w", cctx.Args().Get(1), err)
		}
		payload, err := sdk.Transactions().Transfer(txn.TransferOptions{
			To:       types.Address(cctx.Args().Get(0)),
			Amount:   amount,
			CoinType: cctx.String("coin-type"),
		})
		if err != nil {
			return err
		}

		hash, err := sdk.Transactions().SignAndSubmit(cctx.Context, payload)
		if err != nil {
			return err
		}
		if !cctx.Bool("wait") {
			fmt.Println(hash)
			return nil
		}
		resp, err := sdk.Transactions().WaitForTransaction(cctx.Context, hash)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var txnStatusCmds = &cli.Command{
	Name:      "status",
	Usage:     "look a transaction up by hash",
	ArgsUsage: "hash",
	Flags:     []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		hash := types.Hash(cctx.Args().Get(0))
		resp, finalized, err := sdk.NodeClient().TransactionByHash(cctx.Context, hash)
		if err != nil {
			return err
		}
		if !finalized {
			fmt.Println("pending")
			return nil
		}
		return printJSON(resp)
	},
}

var txnWaitCmds = &cli.Command{
	Name:      "wait",
	Usage:     "block until a transaction is confirmed or the timeout elapses",
	ArgsUsage: "hash",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
		&cli.DurationFlag{Name: "interval", Value: time.Second},
	},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		resp, err := sdk.Transactions().WaitForTransaction(cctx.Context,
			types.Hash(cctx.Args().Get(0)),
			txn.WithTimeout(cctx.Duration("timeout")),
			txn.WithCheckInterval(cctx.Duration("interval")))
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var simulateCmds = &cli.Command{
	Name:      "simulate",
	Usage:     "dry-run an entry function call without signing",
	ArgsUsage: "function (address::module::function)",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "type-arg", Usage: "type argument, repeatable"},
		&cli.StringSliceFlag{Name: "arg", Usage: "string argument, repeatable"},
	},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		args := make([]types.MoveValue, 0, len(cctx.StringSlice("arg")))
		for _, a := range cctx.StringSlice("arg") {
			args = append(args, types.Str(a))
		}
		payload, err := sdk.Transactions().Build(txn.BuildOptions{
			Function:      cctx.Args().Get(0),
			TypeArguments: cctx.StringSlice("type-arg"),
			Arguments:     args,
		})
		if err != nil {
			return err
		}
		result, err := sdk.Transactions().Simulate(cctx.Context, payload)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}
