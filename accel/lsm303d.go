package accel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/accmon"
)

// BootSettle is the wait after a memory reboot before the device accepts
// configuration writes.
const BootSettle = 5 * time.Millisecond

var ErrUnexpectedDevice = errors.New("unexpected device identity")

// Config is the accelerometer setup cached by the driver. It always reflects
// what was last written to the device successfully.
type Config struct {
	FullScale      FullScale
	Rate           Rate
	Bandwidth      Bandwidth
	ClickDetection bool
	FallDetection  bool
}

// DefaultConfig is the setup applied at start: 8g, 3.125Hz, 50Hz
// anti-alias bandwidth, detections off.
func DefaultConfig() Config {
	return Config{
		FullScale: FullScale8G,
		Rate:      Rate3Hz125,
		Bandwidth: Bandwidth50Hz,
	}
}

func (c Config) Validate() error {
	if c.FullScale.G() == 0 {
		return fmt.Errorf("%w: full scale %#02x", accmon.ErrInvalidConfigValue, byte(c.FullScale))
	}
	if c.Rate.MilliHz() == 0 {
		return fmt.Errorf("%w: output rate %#02x", accmon.ErrInvalidConfigValue, byte(c.Rate))
	}
	if c.Bandwidth.Hz() == 0 {
		return fmt.Errorf("%w: bandwidth %#02x", accmon.ErrInvalidConfigValue, byte(c.Bandwidth))
	}
	return nil
}

type Opts struct {
	Address byte
	Settle  time.Duration
	Config  Config
}

type Opt func(*Opts)

func WithAddress(addr byte) Opt {
	return func(o *Opts) {
		o.Address = addr
	}
}

func WithSettleTime(settle time.Duration) Opt {
	return func(o *Opts) {
		o.Settle = settle
	}
}

// WithConfig sets the setup written by Init.
func WithConfig(config Config) Opt {
	return func(o *Opts) {
		o.Config = config
	}
}

// LSM303D drives the accelerometer part of ST LSM303D. The magnetometer is
// left in its power-on state.
type LSM303D struct {
	bus  accmon.RegisterBus
	opts Opts
	// setMx serializes setters so read-modify-write of shared registers
	// cannot interleave; mx guards config only.
	setMx  sync.Mutex
	mx     sync.RWMutex
	config Config
}

func NewLSM303D(bus accmon.RegisterBus, opts ...Opt) *LSM303D {
	o := Opts{
		Address: AddrSA0High,
		Settle:  BootSettle,
		Config:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &LSM303D{bus: bus, opts: o}
}

func (d *LSM303D) Address() byte {
	return d.opts.Address
}

// Config returns the cached setup. It is the zero Config until Init succeeds.
func (d *LSM303D) Config() Config {
	d.mx.RLock()
	defer d.mx.RUnlock()
	return d.config
}

// FullScale returns the range used to scale samples.
func (d *LSM303D) FullScale() FullScale {
	d.mx.RLock()
	defer d.mx.RUnlock()
	return d.config.FullScale
}

func (d *LSM303D) WhoAmI(ctx context.Context) (byte, error) {
	buf := []byte{0x00}
	err := d.bus.ReadRegisters(ctx, d.opts.Address, regWhoAmI, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read device identity: %w", err)
	}
	return buf[0], nil
}

// Init verifies the device identity, reboots its memory content and writes
// the configured setup. Any failure leaves the cached setup unchanged.
func (d *LSM303D) Init(ctx context.Context) error {
	d.setMx.Lock()
	defer d.setMx.Unlock()
	target := d.opts.Config
	if err := target.Validate(); err != nil {
		return err
	}
	id, err := d.WhoAmI(ctx)
	if err != nil {
		return err
	}
	if id != whoAmIValue {
		return fmt.Errorf("%w: WHO_AM_I %#02x, expected %#02x", ErrUnexpectedDevice, id, whoAmIValue)
	}
	err = d.write(ctx, regCtrl0, ctrl0Boot)
	if err != nil {
		return fmt.Errorf("could not reboot device: %w", err)
	}
	timer := time.NewTimer(d.opts.Settle)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return fmt.Errorf("waiting for device boot: %w", ctx.Err())
	}
	// high pass filters for click detection and both interrupt generators
	err = d.write(ctx, regCtrl0, ctrl0HPClick|ctrl0HPIS1|ctrl0HPIS2)
	if err != nil {
		return fmt.Errorf("could not enable high pass filters: %w", err)
	}
	// INT1 on new data, INT2 on click or interrupt generators
	err = d.bus.WriteRegisters(ctx, d.opts.Address, regCtrl3, []byte{ctrl3Int1DrdyA, ctrl4Int2Click | ctrl4Int2IG1 | ctrl4Int2IG2})
	if err != nil {
		return fmt.Errorf("could not route interrupts: %w", err)
	}
	err = d.write(ctx, regCtrl1, byte(target.Rate)|ctrl1Axes)
	if err != nil {
		return fmt.Errorf("could not set output rate: %w", err)
	}
	err = d.write(ctx, regCtrl2, byte(target.Bandwidth)|byte(target.FullScale))
	if err != nil {
		return fmt.Errorf("could not set bandwidth and full scale: %w", err)
	}
	err = d.bus.WriteRegisters(ctx, d.opts.Address, regClickThs, []byte{defaultClickThreshold, defaultClickLimit, defaultClickLatency, defaultClickWindow})
	if err != nil {
		return fmt.Errorf("could not set click timing: %w", err)
	}
	err = d.write(ctx, regClickCfg, clickConfig(target.ClickDetection))
	if err != nil {
		return fmt.Errorf("could not set click detection: %w", err)
	}
	err = d.bus.WriteRegisters(ctx, d.opts.Address, regIGThs1, []byte{freeFallThs, freeFallDur})
	if err != nil {
		return fmt.Errorf("could not set free fall threshold: %w", err)
	}
	err = d.write(ctx, regIGCfg1, fallConfig(target.FallDetection))
	if err != nil {
		return fmt.Errorf("could not set fall detection: %w", err)
	}
	d.store(target)
	slog.Info("accelerometer initialized", "address", d.opts.Address, "range", target.FullScale, "rate", target.Rate, "bandwidth", target.Bandwidth)
	return nil
}

func (d *LSM303D) SetFullScale(ctx context.Context, fs FullScale) error {
	if fs.G() == 0 {
		return fmt.Errorf("%w: full scale %#02x", accmon.ErrInvalidConfigValue, byte(fs))
	}
	return d.update(ctx, func(c *Config) (byte, byte) {
		c.FullScale = fs
		return regCtrl2, byte(c.Bandwidth) | byte(fs)
	})
}

func (d *LSM303D) SetOutputRate(ctx context.Context, rate Rate) error {
	if rate.MilliHz() == 0 {
		return fmt.Errorf("%w: output rate %#02x", accmon.ErrInvalidConfigValue, byte(rate))
	}
	return d.update(ctx, func(c *Config) (byte, byte) {
		c.Rate = rate
		return regCtrl1, byte(rate) | ctrl1Axes
	})
}

func (d *LSM303D) SetFilterBandwidth(ctx context.Context, bw Bandwidth) error {
	if bw.Hz() == 0 {
		return fmt.Errorf("%w: bandwidth %#02x", accmon.ErrInvalidConfigValue, byte(bw))
	}
	return d.update(ctx, func(c *Config) (byte, byte) {
		c.Bandwidth = bw
		return regCtrl2, byte(bw) | byte(c.FullScale)
	})
}

func (d *LSM303D) SetClickDetection(ctx context.Context, enabled bool) error {
	return d.update(ctx, func(c *Config) (byte, byte) {
		c.ClickDetection = enabled
		return regClickCfg, clickConfig(enabled)
	})
}

func (d *LSM303D) SetFallDetection(ctx context.Context, enabled bool) error {
	return d.update(ctx, func(c *Config) (byte, byte) {
		c.FallDetection = enabled
		return regIGCfg1, fallConfig(enabled)
	})
}

// Status returns STATUS_A.
func (d *LSM303D) Status(ctx context.Context) (byte, error) {
	return d.read(ctx, regStatusA)
}

// DataReady reports whether a new sample is available on all axes.
func (d *LSM303D) DataReady(ctx context.Context) (bool, error) {
	status, err := d.Status(ctx)
	if err != nil {
		return false, err
	}
	return status&statusAZYXADA != 0, nil
}

// ReadRaw reads the three axes in a single 6-byte burst so a sample is never
// split across two conversions.
func (d *LSM303D) ReadRaw(ctx context.Context) (RawSample, error) {
	buf := make([]byte, accXYZDataSize)
	err := d.bus.ReadRegisters(ctx, d.opts.Address, regOutXLA, buf)
	if err != nil {
		return RawSample{}, err
	}
	return DecodeRaw(buf), nil
}

// ClickSource reads CLICK_SRC which also clears a latched click.
func (d *LSM303D) ClickSource(ctx context.Context) (byte, error) {
	return d.read(ctx, regClickSrc)
}

// FallSource reads IG_SRC1.
func (d *LSM303D) FallSource(ctx context.Context) (byte, error) {
	return d.read(ctx, regIGSrc1)
}

// ClearDataReady reads STATUS_A and the axis registers so that a data ready
// latched before acquisition started does not keep INT1 asserted.
func (d *LSM303D) ClearDataReady(ctx context.Context) error {
	buf := make([]byte, regOutZHA-regStatusA+1)
	return d.bus.ReadRegisters(ctx, d.opts.Address, regStatusA, buf)
}

func (d *LSM303D) update(ctx context.Context, change func(*Config) (byte, byte)) error {
	d.setMx.Lock()
	defer d.setMx.Unlock()
	next := d.Config()
	reg, value := change(&next)
	err := d.write(ctx, reg, value)
	if err != nil {
		return err
	}
	d.store(next)
	return nil
}

func (d *LSM303D) store(config Config) {
	d.mx.Lock()
	d.config = config
	d.mx.Unlock()
}

func (d *LSM303D) write(ctx context.Context, reg, value byte) error {
	return d.bus.WriteRegisters(ctx, d.opts.Address, reg, []byte{value})
}

func (d *LSM303D) read(ctx context.Context, reg byte) (byte, error) {
	buf := []byte{0x00}
	err := d.bus.ReadRegisters(ctx, d.opts.Address, reg, buf)
	return buf[0], err
}

func clickConfig(enabled bool) byte {
	if enabled {
		return clickCfgSingle
	}
	return 0x00
}

func fallConfig(enabled bool) byte {
	if enabled {
		return igCfgFreeFall
	}
	return 0x00
}
