// Package irq delivers the edges of the sensor interrupt lines to a handler.
package irq

import (
	"context"
	"errors"
)

var ErrNoLines = errors.New("no interrupt lines configured")

// Handler is called once per rising edge with the sensor line number
// (1 or 2). It must not block.
type Handler func(line int)

// Source watches interrupt lines until ctx is done.
type Source interface {
	Run(ctx context.Context, handler Handler) error
}
