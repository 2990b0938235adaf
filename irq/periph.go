package irq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var _ Source = &PeriphSource{}

// PeriphSource waits for edges on pins looked up by name in the periph.io
// registry, e.g. "GPIO17".
type PeriphSource struct {
	pins map[int]string
	poll time.Duration
}

// NewPeriphSource watches pins keyed by sensor line number.
func NewPeriphSource(pins map[int]string) *PeriphSource {
	return &PeriphSource{pins: pins, poll: 100 * time.Millisecond}
}

func (s *PeriphSource) Run(ctx context.Context, handler Handler) error {
	if len(s.pins) == 0 {
		return ErrNoLines
	}
	_, err := host.Init()
	if err != nil {
		return fmt.Errorf("could not init host: %w", err)
	}
	opened := make(map[int]gpio.PinIO, len(s.pins))
	for line, name := range s.pins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return fmt.Errorf("could not find pin %s", name)
		}
		err = pin.In(gpio.PullNoChange, gpio.RisingEdge)
		if err != nil {
			return fmt.Errorf("could not configure pin %s for edge detection: %w", name, err)
		}
		opened[line] = pin
	}
	var wg sync.WaitGroup
	for line, pin := range opened {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Debug("watching interrupt line", "line", line, "pin", pin.Name())
			for ctx.Err() == nil {
				if pin.WaitForEdge(s.poll) {
					handler(line)
				}
			}
		}()
	}
	<-ctx.Done()
	for _, pin := range opened {
		if err := pin.Halt(); err != nil {
			slog.Warn("could not halt pin", "pin", pin.Name(), "error", err)
		}
	}
	wg.Wait()
	return ctx.Err()
}
