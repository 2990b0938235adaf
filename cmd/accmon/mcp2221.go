package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/accmon/adapter"
	"github.com/mklimuk/accmon/cmd/accmon/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB to I2C bridge",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		status, err := adapter.NewMCP2221().Status(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Action: func(c *cli.Context) error {
		status, err := adapter.NewMCP2221().ReleaseBus(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221GPIOCmd = cli.Command{
	Name:  "gpio",
	Usage: "show the GP pin setup and levels used as interrupt inputs",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "inputs",
			Usage: "configure all pins as inputs first",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		a := adapter.NewMCP2221()
		if c.Bool("inputs") {
			err := a.SetGPIOParameters(ctx, adapter.InputParameters())
			if err != nil {
				return console.Exit(1, "could not configure pins: %s", console.Red(err))
			}
		}
		params, err := a.GetGPIOParameters(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		values, err := a.ReadGPIO(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		err = printYAML(params)
		if err != nil {
			return err
		}
		return printYAML(values)
	},
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	err := enc.Encode(v)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return enc.Close()
}
