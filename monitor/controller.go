// Package monitor ties the accelerometer driver, the acquisition loop and
// the moving-average filter to a line based console.
package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/accmon/accel"
	"github.com/mklimuk/accmon/filter"
)

// Setup is a snapshot of the active sensor and filter settings.
type Setup struct {
	accel.Config
	Averaging int
}

func (s Setup) Lines() []string {
	return []string{
		fmt.Sprintf("full scale range +/- %d g", s.FullScale.G()),
		fmt.Sprintf("data read rate: %s", s.Rate),
		fmt.Sprintf("anti-alias bandwidth: %s", s.Bandwidth),
		fmt.Sprintf("number of averaged samples: %d", s.Averaging),
		fmt.Sprintf("fall detection %s", onOff(s.FallDetection)),
		fmt.Sprintf("click detection %s", onOff(s.ClickDetection)),
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// Controller is the single entry point for changing the acquisition setup.
// Device setters write through to the sensor; the averaging depth lives in
// the filter which the controller guards.
type Controller struct {
	dev *accel.LSM303D
	acq *accel.Acquirer

	mx  sync.Mutex
	avg *filter.MovingAverage
}

func NewController(dev *accel.LSM303D, acq *accel.Acquirer, avg *filter.MovingAverage) *Controller {
	return &Controller{dev: dev, acq: acq, avg: avg}
}

// Start clears the filter history and signals the acquirer.
func (c *Controller) Start() {
	c.mx.Lock()
	c.avg.Reset()
	c.mx.Unlock()
	c.acq.Start()
}

func (c *Controller) Stop() {
	c.acq.Stop()
}

func (c *Controller) SetFullScale(ctx context.Context, fs accel.FullScale) error {
	return c.dev.SetFullScale(ctx, fs)
}

func (c *Controller) SetOutputRate(ctx context.Context, rate accel.Rate) error {
	return c.dev.SetOutputRate(ctx, rate)
}

func (c *Controller) SetFilterBandwidth(ctx context.Context, bw accel.Bandwidth) error {
	return c.dev.SetFilterBandwidth(ctx, bw)
}

func (c *Controller) SetClickDetection(ctx context.Context, enabled bool) error {
	return c.dev.SetClickDetection(ctx, enabled)
}

func (c *Controller) SetFallDetection(ctx context.Context, enabled bool) error {
	return c.dev.SetFallDetection(ctx, enabled)
}

// SetAveragingDepth changes the number of averaged samples. The filter
// history is dropped when the depth changes.
func (c *Controller) SetAveragingDepth(depth int) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.avg.SetDepth(depth)
}

func (c *Controller) AveragingDepth() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.avg.Depth()
}

func (c *Controller) Setup() Setup {
	return Setup{Config: c.dev.Config(), Averaging: c.AveragingDepth()}
}

// Smooth pushes the sample, in milli-g, through the filter and returns the
// averaged value.
func (c *Controller) Smooth(s accel.AccelerometerSample) accel.PhysicalSample {
	p := s.Physical()
	c.mx.Lock()
	defer c.mx.Unlock()
	x, y, z := c.avg.PushXYZ(p.X, p.Y, p.Z)
	return accel.PhysicalSample{X: x, Y: y, Z: z}
}
