package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
	"github.com/mklimuk/accmon/adapter"
	"github.com/mklimuk/accmon/gpio"
	"github.com/mklimuk/accmon/i2c"
	"github.com/mklimuk/accmon/irq"
	"github.com/mklimuk/accmon/pkg/config"
	"github.com/mklimuk/accmon/regbus"
	"github.com/mklimuk/accmon/snsctx"
)

var busFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus adapter: generic, gobot, mcp2221 or mock",
	},
	&cli.StringFlag{
		Name:  "device",
		Usage: "periph.io bus name or number",
	},
	&cli.StringFlag{
		Name:  "address",
		Usage: "sensor address (0x1d or 0x1e)",
	},
}

// loadConfig reads the config file and applies the command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("adapter") {
		cfg.Bus.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Bus.Device = c.String("device")
	}
	if c.IsSet("address") {
		addr, err := strconv.ParseUint(c.String("address"), 0, 7)
		if err != nil {
			return nil, fmt.Errorf("%w: address %q", accmon.ErrInvalidConfigValue, c.String("address"))
		}
		cfg.Bus.Address = uint8(addr)
	}
	if c.IsSet("interrupts") {
		cfg.Interrupts.Driver = c.String("interrupts")
	}
	return cfg, cfg.Validate()
}

type hardware struct {
	bus    accmon.I2CBus
	engine *regbus.Engine
	mcp    *adapter.MCP2221
	mock   *accel.MockBus
	close  func() error
}

// openBus opens the transport and the register engine shared by every device
// on the bus.
func openBus(ctx context.Context, cfg *config.Config) (*hardware, error) {
	hw, err := openTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}
	hw.engine = regbus.New(hw.bus, regbus.WithBusyTimeout(cfg.Bus.BusyTimeout))
	return hw, nil
}

func openTransport(ctx context.Context, cfg *config.Config) (*hardware, error) {
	switch cfg.Bus.Adapter {
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(cfg.Bus.Device)
		if err != nil {
			return nil, err
		}
		if cfg.Bus.SpeedHz > 0 {
			err = bus.SetSpeed(physic.Frequency(cfg.Bus.SpeedHz) * physic.Hertz)
			if err != nil {
				slog.Warn("bus speed unchanged", "bus", bus.String(), "error", err)
			}
		}
		return &hardware{bus: bus, close: bus.Close}, nil
	case config.AdapterGobot:
		bus, err := i2c.NewNanoPiBus(cfg.Bus.Number)
		if err != nil {
			return nil, err
		}
		return &hardware{bus: bus, close: bus.Close}, nil
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221()
		if cfg.Bus.SpeedHz > 0 {
			err := a.SetSpeed(ctx, cfg.Bus.SpeedHz)
			if err != nil {
				return nil, err
			}
		}
		return &hardware{bus: a, mcp: a, close: func() error { return a.Release(context.Background()) }}, nil
	case config.AdapterMock:
		m := accel.NewMockBus(cfg.Bus.Address)
		return &hardware{bus: m, mock: m, close: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("%w: bus adapter %q", accmon.ErrInvalidConfigValue, cfg.Bus.Adapter)
}

func openDevice(cfg *config.Config, hw *hardware) (*accel.LSM303D, error) {
	setup, err := cfg.Accelerometer()
	if err != nil {
		return nil, err
	}
	return accel.NewLSM303D(hw.engine, accel.WithAddress(cfg.Bus.Address), accel.WithConfig(setup)), nil
}

// openInterrupts returns the interrupt source for the configured driver. The
// mock adapter always uses a manual source fed by the simulator.
func openInterrupts(ctx context.Context, cfg *config.Config, hw *hardware) (irq.Source, *irq.Manual, error) {
	if hw.mock != nil {
		m := irq.NewManual()
		return m, m, nil
	}
	switch cfg.Interrupts.Driver {
	case config.InterruptsCdev:
		offsets, err := cfg.Interrupts.Offsets()
		if err != nil {
			return nil, nil, err
		}
		return irq.NewCdevSource(cfg.Interrupts.Chip, offsets), nil, nil
	case config.InterruptsPeriph:
		return irq.NewPeriphSource(cfg.Interrupts.Names()), nil, nil
	case config.InterruptsMCP2221:
		pins, err := cfg.Interrupts.Offsets()
		if err != nil {
			return nil, nil, err
		}
		a := hw.mcp
		if a == nil {
			a = adapter.NewMCP2221()
		}
		err = a.SetGPIOParameters(ctx, adapter.InputParameters())
		if err != nil {
			return nil, nil, fmt.Errorf("could not configure adapter pins as inputs: %w", err)
		}
		return irq.NewPollSource(a, pins, cfg.Interrupts.PollPeriod), nil, nil
	case config.InterruptsMCP23017:
		pins, err := cfg.Interrupts.Offsets()
		if err != nil {
			return nil, nil, err
		}
		expander := gpio.NewMCP23017(hw.engine.Sequential(), cfg.Interrupts.ExpanderAddress)
		err = expander.InitInputs(ctx, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("could not configure expander pins as inputs: %w", err)
		}
		return irq.NewPollSource(expander, pins, cfg.Interrupts.PollPeriod), nil, nil
	case config.InterruptsManual:
		m := irq.NewManual()
		return m, m, nil
	}
	return nil, nil, fmt.Errorf("%w: interrupt driver %q", accmon.ErrInvalidConfigValue, cfg.Interrupts.Driver)
}

func commandContext(c *cli.Context) context.Context {
	return snsctx.SetVerbose(c.Context, c.Bool("verbose"))
}
