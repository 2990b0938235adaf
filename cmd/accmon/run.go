package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/accmon/cmd/accmon/console"
	"github.com/mklimuk/accmon/monitor"
)

var runCmd = cli.Command{
	Name:  "run",
	Usage: "configure the sensor and open the interactive console",
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
		ctx, stop := signal.NotifyContext(commandContext(c), syscall.SIGTERM)
		defer stop()

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
		source, manual, err := openInterrupts(ctx, cfg, hw)
		if err != nil {
			return console.Exit(1, "could not open interrupt lines: %s", console.Red(err))
		}

		reader, err := console.NewReader()
		if err != nil {
			return console.Exit(1, "could not open console: %s", console.Red(err))
		}
		defer reader.Close()

		sys, err := monitor.NewSystem(dev,
			monitor.WithQueues(cfg.Queues.Events, cfg.Queues.Output, cfg.Queues.Commands, cfg.Queues.Console),
			monitor.WithAveraging(cfg.Sensor.Averaging),
			monitor.WithDisplay(monitor.NewTerminal(reader.Stdout())))
		if err != nil {
			return console.Exit(1, "could not create system: %s", console.Red(err))
		}
		err = sys.Boot(ctx)
		if err != nil {
			return console.Exit(1, "sensor bring-up failed: %s", console.Red(err))
		}
		console.Infof("accelerometer ready at %#x, type %s for the list of commands", dev.Address(), console.Bold("help"))

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := source.Run(ctx, sys.HandleInterrupt)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("interrupt source stopped", "error", err)
				cancel()
			}
		}()
		go func() {
			defer wg.Done()
			_ = sys.Run(ctx)
		}()
		if hw.mock != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				simulate(ctx, hw.mock, dev, manual)
			}()
		}

		err = reader.ReadLines(ctx, sys.Submit)
		cancel()
		wg.Wait()
		if err != nil {
			return console.Exit(1, "console failure: %s", console.Red(err))
		}
		return nil
	},
}
