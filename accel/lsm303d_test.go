package accel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/regbus"
)

func newTestDevice(t *testing.T, opts ...Opt) (*MockBus, *LSM303D) {
	t.Helper()
	bus := NewMockBus(AddrSA0High)
	opts = append([]Opt{WithSettleTime(time.Millisecond)}, opts...)
	return bus, NewLSM303D(regbus.New(bus), opts...)
}

func failOn(op accmon.BusOp, reg byte) MockBusBehaviorFunc {
	return func(o accmon.BusOp, r byte) error {
		if o == op && r == reg {
			return accmon.ErrBusNack
		}
		return nil
	}
}

func TestLSM303D_Init(t *testing.T) {
	bus, dev := newTestDevice(t)
	require.NoError(t, dev.Init(context.Background()))

	expected := []RegisterWrite{
		{regCtrl0, 0x80},
		{regCtrl0, 0x07},
		{regCtrl3, 0x04},
		{regCtrl4, 0xE0},
		{regCtrl1, 0x17},
		{regCtrl2, 0xD8},
		{regClickThs, defaultClickThreshold},
		{regTimeLimit, defaultClickLimit},
		{regTimeLatency, defaultClickLatency},
		{regTimeWindow, defaultClickWindow},
		{regClickCfg, 0x00},
		{regIGThs1, freeFallThs},
		{regIGDur1, freeFallDur},
		{regIGCfg1, 0x00},
	}
	assert.Equal(t, expected, bus.Writes())
	assert.Equal(t, DefaultConfig(), dev.Config())
}

func TestLSM303D_InitWithDetections(t *testing.T) {
	config := DefaultConfig()
	config.ClickDetection = true
	config.FallDetection = true
	bus, dev := newTestDevice(t, WithConfig(config))
	require.NoError(t, dev.Init(context.Background()))
	assert.Equal(t, byte(0x15), bus.Register(regClickCfg))
	assert.Equal(t, byte(0x95), bus.Register(regIGCfg1))
	assert.Equal(t, config, dev.Config())
}

func TestLSM303D_InitUnexpectedDevice(t *testing.T) {
	bus, dev := newTestDevice(t)
	bus.SetRegister(regWhoAmI, 0x33)
	err := dev.Init(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedDevice)
	assert.Empty(t, bus.Writes())
	assert.Equal(t, Config{}, dev.Config())
}

func TestLSM303D_InitNackLeavesConfigUnchanged(t *testing.T) {
	tests := []struct {
		name string
		op   accmon.BusOp
		reg  byte
	}{
		{"identity", accmon.OpRead, regWhoAmI},
		{"reboot", accmon.OpWrite, regCtrl0},
		{"interrupt routing", accmon.OpWrite, regCtrl3},
		{"full scale", accmon.OpWrite, regCtrl2},
		{"fall detection", accmon.OpWrite, regIGCfg1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, dev := newTestDevice(t)
			bus.SetBehavior(failOn(tt.op, tt.reg))
			err := dev.Init(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, accmon.ErrBusNack)
			assert.Equal(t, Config{}, dev.Config())
		})
	}
}

func TestLSM303D_InitCancelledDuringSettle(t *testing.T) {
	_, dev := newTestDevice(t, WithSettleTime(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := dev.Init(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Config{}, dev.Config())
}

func TestLSM303D_FullScaleRoundTrip(t *testing.T) {
	for _, g := range []int{2, 4, 6, 8, 16} {
		t.Run(fmt.Sprintf("%dg", g), func(t *testing.T) {
			bus, dev := newTestDevice(t)
			ctx := context.Background()
			require.NoError(t, dev.Init(ctx))

			fs, ok := FullScaleFromG(g)
			require.True(t, ok)
			require.NoError(t, dev.SetFullScale(ctx, fs))
			assert.Equal(t, g, dev.Config().FullScale.G())
			assert.Equal(t, byte(fs), bus.Register(regCtrl2)&fullScaleMask)
			// bandwidth is kept
			assert.Equal(t, byte(Bandwidth50Hz), bus.Register(regCtrl2)&0xC0)
		})
	}
}

func TestLSM303D_SetOutputRate(t *testing.T) {
	tests := []struct {
		mhz      int
		register byte
	}{
		{3125, 0x17},
		{6250, 0x27},
		{12500, 0x37},
		{25000, 0x47},
		{50000, 0x57},
		{100000, 0x67},
		{200000, 0x77},
		{400000, 0x87},
		{800000, 0x97},
		{1600000, 0xA7},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.mhz), func(t *testing.T) {
			bus, dev := newTestDevice(t)
			ctx := context.Background()
			require.NoError(t, dev.Init(ctx))
			rate, ok := RateFromMilliHz(tt.mhz)
			require.True(t, ok)
			require.NoError(t, dev.SetOutputRate(ctx, rate))
			assert.Equal(t, tt.register, bus.Register(regCtrl1))
			assert.Equal(t, tt.mhz, dev.Config().Rate.MilliHz())
		})
	}
}

func TestLSM303D_SetFilterBandwidthKeepsFullScale(t *testing.T) {
	bus, dev := newTestDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Init(ctx))
	require.NoError(t, dev.SetFullScale(ctx, FullScale16G))
	require.NoError(t, dev.SetFilterBandwidth(ctx, Bandwidth362Hz))
	assert.Equal(t, byte(0x80|0x20), bus.Register(regCtrl2))
	assert.Equal(t, Bandwidth362Hz, dev.Config().Bandwidth)
	assert.Equal(t, FullScale16G, dev.Config().FullScale)
}

func TestLSM303D_Detections(t *testing.T) {
	bus, dev := newTestDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Init(ctx))

	require.NoError(t, dev.SetClickDetection(ctx, true))
	assert.Equal(t, byte(clickCfgSingle), bus.Register(regClickCfg))
	assert.True(t, dev.Config().ClickDetection)
	require.NoError(t, dev.SetFallDetection(ctx, true))
	assert.Equal(t, byte(igCfgFreeFall), bus.Register(regIGCfg1))
	assert.True(t, dev.Config().FallDetection)

	require.NoError(t, dev.SetClickDetection(ctx, false))
	assert.Zero(t, bus.Register(regClickCfg))
	assert.False(t, dev.Config().ClickDetection)
}

func TestLSM303D_FailedSetterKeepsConfig(t *testing.T) {
	bus, dev := newTestDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Init(ctx))
	before := dev.Config()

	bus.SetBehavior(failOn(accmon.OpWrite, regCtrl1))
	err := dev.SetOutputRate(ctx, Rate400Hz)
	assert.ErrorIs(t, err, accmon.ErrBusNack)
	assert.Equal(t, before, dev.Config())

	bus.SetBehavior(failOn(accmon.OpWrite, regCtrl2))
	assert.Error(t, dev.SetFullScale(ctx, FullScale2G))
	assert.Error(t, dev.SetFilterBandwidth(ctx, Bandwidth773Hz))
	assert.Equal(t, before, dev.Config())
}

func TestLSM303D_InvalidValues(t *testing.T) {
	bus, dev := newTestDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Init(ctx))
	bus.ResetWrites()

	assert.ErrorIs(t, dev.SetFullScale(ctx, FullScale(0x28)), accmon.ErrInvalidConfigValue)
	assert.ErrorIs(t, dev.SetOutputRate(ctx, Rate(0xB0)), accmon.ErrInvalidConfigValue)
	assert.ErrorIs(t, dev.SetFilterBandwidth(ctx, Bandwidth(0x01)), accmon.ErrInvalidConfigValue)
	assert.Empty(t, bus.Writes())
}

func TestLSM303D_ReadRaw(t *testing.T) {
	bus, dev := newTestDevice(t)
	ctx := context.Background()
	bus.PutSample(RawSample{X: 0x1234, Y: -2, Z: 16384})
	bus.PutSample(RawSample{X: 1})
	assert.Equal(t, 2, bus.Pending())

	ready, err := dev.DataReady(ctx)
	require.NoError(t, err)
	assert.True(t, ready)

	raw, err := dev.ReadRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, RawSample{X: 0x1234, Y: -2, Z: 16384}, raw)
	assert.Equal(t, 1, bus.Pending())

	raw, err = dev.ReadRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, RawSample{X: 1}, raw)
	assert.Zero(t, bus.Pending())

	ready, err = dev.DataReady(ctx)
	require.NoError(t, err)
	assert.False(t, ready)
}
