// Package config holds the accmon configuration file model.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
	"github.com/mklimuk/accmon/filter"
	"github.com/mklimuk/accmon/gpio"
)

// Version is injected at build time.
var Version = "latest"

const (
	AdapterGeneric = "generic"
	AdapterGobot   = "gobot"
	AdapterMCP2221 = "mcp2221"
	AdapterMock    = "mock"

	InterruptsCdev     = "cdev"
	InterruptsPeriph   = "periph"
	InterruptsMCP2221  = "mcp2221"
	InterruptsMCP23017 = "mcp23017"
	InterruptsManual   = "manual"
)

type Bus struct {
	Adapter string `yaml:"adapter"`
	// Device is the periph bus name, e.g. "/dev/i2c-1" or "1".
	Device string `yaml:"device"`
	// Number is the bus index used by the gobot adapter.
	Number      int           `yaml:"number"`
	Address     uint8         `yaml:"address"`
	SpeedHz     int           `yaml:"speed_hz"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type Interrupts struct {
	Driver string `yaml:"driver"`
	Chip   string `yaml:"chip"`
	// Data and Detection identify the INT1 and INT2 lines: a chip offset for
	// cdev, a pin name for periph, a GP index for mcp2221, a pin number (GPA0
	// is 0, GPB0 is 8) for mcp23017.
	Data       string        `yaml:"data"`
	Detection  string        `yaml:"detection"`
	PollPeriod time.Duration `yaml:"poll_period"`

	// ExpanderAddress is the MCP23017 address on the sensor bus.
	ExpanderAddress uint8 `yaml:"expander_address"`
}

type Sensor struct {
	Range          string `yaml:"range"`
	Rate           string `yaml:"rate"`
	Bandwidth      string `yaml:"bandwidth"`
	Averaging      int    `yaml:"averaging"`
	ClickDetection bool   `yaml:"click_detection"`
	FallDetection  bool   `yaml:"fall_detection"`
}

type Queues struct {
	Events   int `yaml:"events"`
	Output   int `yaml:"output"`
	Commands int `yaml:"commands"`
	Console  int `yaml:"console"`
}

type Config struct {
	Bus        Bus        `yaml:"bus"`
	Interrupts Interrupts `yaml:"interrupts"`
	Sensor     Sensor     `yaml:"sensor"`
	Queues     Queues     `yaml:"queues"`
}

func Default() *Config {
	return &Config{
		Bus: Bus{
			Adapter: AdapterGeneric,
			Device:  "",
			Number:  0,
			Address: accel.AddrSA0High,
			SpeedHz: 400_000,
		},
		Interrupts: Interrupts{
			Driver:          InterruptsCdev,
			Chip:            "gpiochip0",
			Data:            "17",
			Detection:       "27",
			PollPeriod:      5 * time.Millisecond,
			ExpanderAddress: gpio.DefaultMCP23017Address,
		},
		Sensor: Sensor{
			Range:     "8g",
			Rate:      "3.125Hz",
			Bandwidth: "50Hz",
			Averaging: 1,
		},
		Queues: Queues{
			Events:   accel.DefaultEventQueueSize,
			Output:   accel.DefaultOutputQueueSize,
			Commands: 10,
			Console:  10,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	err = cfg.Decode(f)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads YAML from r over the current values and validates the result.
func (c *Config) Decode(r io.Reader) error {
	err := yaml.NewDecoder(r).Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not decode config: %w", err)
	}
	return c.Validate()
}

func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(c)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	return enc.Close()
}

func (c *Config) Validate() error {
	switch c.Bus.Adapter {
	case AdapterGeneric, AdapterGobot, AdapterMCP2221, AdapterMock:
	default:
		return fmt.Errorf("%w: bus adapter %q", accmon.ErrInvalidConfigValue, c.Bus.Adapter)
	}
	if c.Bus.Address > 0x7F {
		return fmt.Errorf("%w: bus address %#x is not a 7-bit address", accmon.ErrInvalidConfigValue, c.Bus.Address)
	}
	if c.Bus.BusyTimeout < 0 {
		return fmt.Errorf("%w: negative busy timeout", accmon.ErrInvalidConfigValue)
	}
	switch c.Interrupts.Driver {
	case InterruptsCdev, InterruptsPeriph, InterruptsMCP2221, InterruptsMCP23017, InterruptsManual:
	default:
		return fmt.Errorf("%w: interrupt driver %q", accmon.ErrInvalidConfigValue, c.Interrupts.Driver)
	}
	if _, err := c.Accelerometer(); err != nil {
		return err
	}
	if c.Sensor.Averaging < 1 || c.Sensor.Averaging >= filter.DefaultCapacity {
		return fmt.Errorf("%w: averaging %d not in [1, %d)", accmon.ErrInvalidConfigValue, c.Sensor.Averaging, filter.DefaultCapacity)
	}
	return nil
}

// Accelerometer returns the sensor section as a driver setup.
func (c *Config) Accelerometer() (accel.Config, error) {
	fs, err := accel.ParseFullScale(c.Sensor.Range)
	if err != nil {
		return accel.Config{}, err
	}
	rate, err := accel.ParseRate(c.Sensor.Rate)
	if err != nil {
		return accel.Config{}, err
	}
	bw, err := accel.ParseBandwidth(c.Sensor.Bandwidth)
	if err != nil {
		return accel.Config{}, err
	}
	return accel.Config{
		FullScale:      fs,
		Rate:           rate,
		Bandwidth:      bw,
		ClickDetection: c.Sensor.ClickDetection,
		FallDetection:  c.Sensor.FallDetection,
	}, nil
}

// Offsets returns the interrupt lines as numeric chip offsets or pin indexes
// keyed by sensor line.
func (i Interrupts) Offsets() (map[int]int, error) {
	lines := map[int]int{}
	for line, value := range i.Names() {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: interrupt line %d %q", accmon.ErrInvalidConfigValue, line, value)
		}
		lines[line] = n
	}
	return lines, nil
}

// Names returns the configured interrupt lines keyed by sensor line. Empty
// entries are left out.
func (i Interrupts) Names() map[int]string {
	lines := map[int]string{}
	if i.Data != "" {
		lines[accel.LineData] = i.Data
	}
	if i.Detection != "" {
		lines[accel.LineDetection] = i.Detection
	}
	return lines
}
