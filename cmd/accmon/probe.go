package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/accmon/cmd/accmon/console"
	"github.com/mklimuk/accmon/monitor"
)

var probeCmd = cli.Command{
	Name:  "probe",
	Usage: "check the sensor identity and apply the configured setup",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "identify",
			Usage: "only read WHO_AM_I, leave the sensor untouched",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "invalid configuration: %s", console.Red(err))
		}
		ctx := commandContext(c)
		hw, err := openBus(ctx, cfg)
		if err != nil {
			return console.Exit(1, "could not open bus: %s", console.Red(err))
		}
		defer func() {
			if err := hw.close(); err != nil {
				console.Warnf("bus not closed cleanly: %s", err)
			}
		}()
		dev, err := openDevice(cfg, hw)
		if err != nil {
			return console.Exit(1, "invalid sensor setup: %s", console.Red(err))
		}
		id, err := dev.WhoAmI(ctx)
		if err != nil {
			return console.Exit(1, "sensor communication error: %s", console.Red(err))
		}
		console.Field("address", console.Green(fmtHex(dev.Address())))
		console.Field("who am i", fmtHex(id))
		if c.Bool("identify") {
			return nil
		}
		err = dev.Init(ctx)
		if err != nil {
			return console.Exit(1, "sensor bring-up failed: %s", console.Red(err))
		}
		setup := monitor.Setup{Config: dev.Config(), Averaging: cfg.Sensor.Averaging}
		for _, line := range setup.Lines() {
			console.Print(line)
		}
		return nil
	},
}

func fmtHex(b byte) string {
	return fmt.Sprintf("%#02x", b)
}
