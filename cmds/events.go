package cmds

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/aptokit/aptokit/types"
)

var EventsCmds = &cli.Command{
	Name:        "events",
	Usage:       "contract event cmds",
	Subcommands: []*cli.Command{watchCmds},
}

var watchCmds = &cli.Command{
	Name:      "watch",
	Usage:     "stream new events for a handle until interrupted",
	ArgsUsage: "handle (address::module::EventType)",
	Flags:     []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		sdk, closer, err := newSDK(cctx)
		if err != nil {
			return err
		}
		defer closer()

		handle := cctx.Args().Get(0)
		id, err := sdk.Events().Subscribe(handle, func(ev types.ContractEvent) {
			if err := printJSON(ev); err != nil {
				log.Errorf("print event failed: %s", err)
			}
		})
		if err != nil {
			return err
		}
		defer sdk.Events().Unsubscribe(id)
		fmt.Fprintf(os.Stderr, "watching %s, ctrl-c to stop\n", handle)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Infof("stopping on signal %s", sig)
		case <-cctx.Context.Done():
		}
		return nil
	},
}
