package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
	"github.com/mklimuk/accmon/filter"
	"github.com/mklimuk/accmon/regbus"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	dev := accel.NewLSM303D(regbus.New(accel.NewMockBus(accel.AddrSA0High)), accel.WithSettleTime(time.Millisecond))
	require.NoError(t, dev.Init(context.Background()))
	acq, err := accel.NewAcquirer(dev)
	require.NoError(t, err)
	avg, err := filter.NewMovingAverage(filter.DefaultCapacity, 1)
	require.NoError(t, err)
	return NewController(dev, acq, avg)
}

func TestController_AveragingDepth(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.SetAveragingDepth(999))
	assert.Equal(t, 999, c.AveragingDepth())

	for _, depth := range []int{0, -1, filter.DefaultCapacity} {
		err := c.SetAveragingDepth(depth)
		assert.ErrorIs(t, err, accmon.ErrInvalidConfigValue)
		assert.Equal(t, 999, c.AveragingDepth())
	}
}

func TestController_Smooth(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.SetAveragingDepth(3))
	sample := func(x int16) accel.AccelerometerSample {
		// 4096 codes per g at 8g
		return accel.AccelerometerSample{Raw: accel.RawSample{X: x}, FullScale: accel.FullScale8G}
	}
	assert.Equal(t, int32(0), c.Smooth(sample(0)).X)
	assert.Equal(t, int32(0), c.Smooth(sample(0)).X)
	assert.Equal(t, int32(333), c.Smooth(sample(4096)).X)
	assert.Equal(t, int32(666), c.Smooth(sample(4096)).X)
	assert.Equal(t, int32(1000), c.Smooth(sample(4096)).X)

	// start drops the history
	c.Start()
	c.Stop()
	assert.Equal(t, int32(333), c.Smooth(sample(4096)).X)
}

func TestController_Setup(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	require.NoError(t, c.SetFullScale(ctx, accel.FullScale2G))
	require.NoError(t, c.SetOutputRate(ctx, accel.Rate50Hz))
	require.NoError(t, c.SetFilterBandwidth(ctx, accel.Bandwidth194Hz))
	require.NoError(t, c.SetClickDetection(ctx, true))
	require.NoError(t, c.SetAveragingDepth(8))

	setup := c.Setup()
	assert.Equal(t, accel.FullScale2G, setup.FullScale)
	assert.Equal(t, accel.Rate50Hz, setup.Rate)
	assert.Equal(t, accel.Bandwidth194Hz, setup.Bandwidth)
	assert.True(t, setup.ClickDetection)
	assert.False(t, setup.FallDetection)
	assert.Equal(t, 8, setup.Averaging)
}
