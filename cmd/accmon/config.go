package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/accmon/cmd/accmon/console"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "interrupts",
			Usage: "interrupt driver: cdev, periph, mcp2221, mcp23017 or manual",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "invalid configuration: %s", console.Red(err))
		}
		err = cfg.Encode(os.Stdout)
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}
