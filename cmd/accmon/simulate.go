package main

import (
	"context"
	"math"
	"time"

	"github.com/mklimuk/accmon/accel"
	"github.com/mklimuk/accmon/irq"
)

const simulatedClickPeriod = 5 * time.Second

// simulate plays the sensor on the mock bus: a slow tilt around the X axis at
// the configured output rate and a periodic click when click detection is on.
func simulate(ctx context.Context, bus *accel.MockBus, dev *accel.LSM303D, lines *irq.Manual) {
	select {
	case <-lines.Ready():
	case <-ctx.Done():
		return
	}
	clicks := time.NewTicker(simulatedClickPeriod)
	defer clicks.Stop()
	var phase float64
	for {
		config := dev.Config()
		period := time.Second
		if mhz := config.Rate.MilliHz(); mhz > 0 {
			period = time.Duration(float64(time.Second) * 1000 / float64(mhz))
		}
		timer := time.NewTimer(period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-clicks.C:
			timer.Stop()
			if config.ClickDetection {
				// single click on the Z axis
				bus.PutClick(0x14)
				lines.Fire(accel.LineDetection)
			}
		case <-timer.C:
			if bus.Pending() > 0 {
				continue
			}
			phase += 2 * math.Pi * period.Seconds() / 10
			oneG := float64(math.MaxInt16) / float64(config.FullScale.G())
			bus.PutSample(accel.RawSample{
				X: 0,
				Y: int16(oneG * math.Sin(phase)),
				Z: int16(oneG * math.Cos(phase)),
			})
			lines.Fire(accel.LineData)
		}
	}
}
