package cmds

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/aptokit/aptokit/config"
)

var ConfigCmds = &cli.Command{
	Name:        "config",
	Usage:       "config cmds",
	Subcommands: []*cli.Command{genConfigCmds, showConfigCmds},
}

var genConfigCmds = &cli.Command{
	Name:  "gen",
	Usage: "write a default config file into the repo directory",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		cfg, path, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		if err := config.WriteConfig(path, cfg); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var showConfigCmds = &cli.Command{
	Name:  "show",
	Usage: "print the effective configuration",
	Flags: []cli.Flag{},
	Action: func(cctx *cli.Context) error {
		cfg, _, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		return printJSON(cfg)
	},
}
