// Command example walks the SDK end to end against a local node: connect a
// remote wallet daemon, transfer coins, wait for confirmation and stream
// marketplace events until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"

	"github.com/aptokit/aptokit"
	"github.com/aptokit/aptokit/config"
	"github.com/aptokit/aptokit/txn"
	"github.com/aptokit/aptokit/types"
	"github.com/aptokit/aptokit/wallet"
	"github.com/aptokit/aptokit/wallet/remote"
)

var log = logging.Logger("example")

func main() {
	_ = logging.SetLogLevel("*", "INFO")
	if err := run(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zlog, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	daemon := remote.New("ws://127.0.0.1:9090/ws",
		wallet.Info{ID: "remote", Name: "Remote Wallet"}, zlog.Sugar())
	if err := daemon.Start(ctx); err != nil {
		return err
	}
	defer daemon.Close()

	cfg := config.DefaultConfig()
	net := config.Localnet
	cfg.Network = &net

	sdk, err := aptokit.New(cfg, aptokit.WithProviders(daemon))
	if err != nil {
		return err
	}
	defer sdk.Close()

	if err := sdk.Wallet().Connect(ctx, "remote"); err != nil {
		return err
	}
	state := sdk.Wallet().WalletState()
	log.Infow("connected", "address", state.Address)

	payload, err := sdk.Transactions().Transfer(txn.TransferOptions{To: "0x2", Amount: 100})
	if err != nil {
		return err
	}
	hash, err := sdk.Transactions().SignAndSubmit(ctx, payload)
	if err != nil {
		return err
	}
	resp, err := sdk.Transactions().WaitForTransaction(ctx, hash)
	if err != nil {
		return err
	}
	log.Infow("transfer confirmed", "hash", resp.Hash, "gas", resp.GasUsed)

	id, err := sdk.Events().Subscribe("0x42::marketplace::ListingEvent", func(ev types.ContractEvent) {
		fmt.Printf("event %s seq=%s %v\n", ev.Type, ev.SequenceNumber, ev.Data)
	})
	if err != nil {
		return err
	}
	defer sdk.Events().Unsubscribe(id)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return sdk.Wallet().Disconnect(ctx)
}
