//go:build linux

package irq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warthog618/go-gpiocdev"
)

var _ Source = &CdevSource{}

// CdevSource requests the lines from the GPIO character device and receives
// edges through the kernel event queue.
type CdevSource struct {
	chip    string
	offsets map[int]int
}

// NewCdevSource watches chip offsets keyed by sensor line number.
func NewCdevSource(chip string, offsets map[int]int) *CdevSource {
	return &CdevSource{chip: chip, offsets: offsets}
}

func (s *CdevSource) Run(ctx context.Context, handler Handler) error {
	if len(s.offsets) == 0 {
		return ErrNoLines
	}
	offsets := make([]int, 0, len(s.offsets))
	lines := make(map[int]int, len(s.offsets))
	for line, offset := range s.offsets {
		offsets = append(offsets, offset)
		lines[offset] = line
	}
	req, err := gpiocdev.RequestLines(s.chip, offsets,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("accmon"),
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if line, ok := lines[evt.Offset]; ok {
				handler(line)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("could not request lines %v on %s: %w", offsets, s.chip, err)
	}
	slog.Debug("watching interrupt lines", "chip", s.chip, "offsets", offsets)
	<-ctx.Done()
	if err := req.Close(); err != nil {
		slog.Warn("could not release lines", "chip", s.chip, "error", err)
	}
	return ctx.Err()
}
