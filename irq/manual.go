package irq

import (
	"context"
	"sync"
)

var _ Source = &Manual{}

// Manual is a Source fired programmatically, used with the mock adapter and
// in tests.
type Manual struct {
	mx      sync.Mutex
	handler Handler
	ready   chan struct{}
}

func NewManual() *Manual {
	return &Manual{ready: make(chan struct{})}
}

func (m *Manual) Run(ctx context.Context, handler Handler) error {
	m.mx.Lock()
	m.handler = handler
	close(m.ready)
	m.mx.Unlock()
	<-ctx.Done()
	m.mx.Lock()
	m.handler = nil
	m.ready = make(chan struct{})
	m.mx.Unlock()
	return ctx.Err()
}

// Ready is closed once Run has installed the handler.
func (m *Manual) Ready() <-chan struct{} {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.ready
}

// Fire signals an edge on line. It returns false when no handler is running.
func (m *Manual) Fire(line int) bool {
	m.mx.Lock()
	handler := m.handler
	m.mx.Unlock()
	if handler == nil {
		return false
	}
	handler(line)
	return true
}
