package irq

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LevelReader returns the levels of a set of input pins, one byte per pin.
// adapter.MCP2221 implements it for its GP0..GP3 pins.
type LevelReader interface {
	Read(ctx context.Context, id ...int) ([]byte, error)
}

var _ Source = &PollSource{}

// PollSource samples pin levels periodically and reports low to high
// transitions. The period has to be shorter than the sensor output period or
// edges are lost.
type PollSource struct {
	reader LevelReader
	pins   map[int]int
	period time.Duration
}

// NewPollSource watches pin indexes keyed by sensor line number.
func NewPollSource(reader LevelReader, pins map[int]int, period time.Duration) *PollSource {
	return &PollSource{reader: reader, pins: pins, period: period}
}

func (s *PollSource) Run(ctx context.Context, handler Handler) error {
	if len(s.pins) == 0 {
		return ErrNoLines
	}
	if s.period <= 0 {
		return fmt.Errorf("invalid poll period %s", s.period)
	}
	high := make(map[int]bool, len(s.pins))
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		levels, err := s.reader.Read(ctx)
		if err != nil {
			slog.Warn("could not read interrupt lines", "error", err)
			continue
		}
		for line, pin := range s.pins {
			if pin >= len(levels) {
				continue
			}
			level := levels[pin] != 0
			if level && !high[line] {
				handler(line)
			}
			high[line] = level
		}
	}
}
