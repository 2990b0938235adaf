package accel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/snsctx"
)

// Event is an interrupt notification handed from an interrupt source to the
// acquisition loop.
type Event int

const (
	EventNewData Event = iota + 1
	EventNewDetection
)

func (e Event) String() string {
	switch e {
	case EventNewData:
		return "new data"
	case EventNewDetection:
		return "new detection"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// interrupt lines of the sensor
const (
	LineData      = 1
	LineDetection = 2
)

type State int32

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

const (
	DefaultEventQueueSize  = 3
	DefaultOutputQueueSize = 4
)

type AcquirerOpts struct {
	EventQueueSize  int
	OutputQueueSize int
}

type AcquirerOpt func(*AcquirerOpts)

func WithEventQueueSize(size int) AcquirerOpt {
	return func(o *AcquirerOpts) {
		o.EventQueueSize = size
	}
}

func WithOutputQueueSize(size int) AcquirerOpt {
	return func(o *AcquirerOpts) {
		o.OutputQueueSize = size
	}
}

// Acquirer turns interrupt notifications into typed outputs. It is idle until
// Start and reads the device only while active.
type Acquirer struct {
	dev    *LSM303D
	events chan Event
	out    chan Output
	start  chan struct{}

	mx   sync.Mutex
	stop chan struct{}
	// done is closed when the activation picked up by Run has ended.
	done chan struct{}

	state   atomic.Int32
	dropped atomic.Uint64
	faults  atomic.Uint64
}

func NewAcquirer(dev *LSM303D, opts ...AcquirerOpt) (*Acquirer, error) {
	o := AcquirerOpts{
		EventQueueSize:  DefaultEventQueueSize,
		OutputQueueSize: DefaultOutputQueueSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.EventQueueSize < 1 {
		return nil, fmt.Errorf("%w: event queue size %d", accmon.ErrQueueCreation, o.EventQueueSize)
	}
	if o.OutputQueueSize < 1 {
		return nil, fmt.Errorf("%w: output queue size %d", accmon.ErrQueueCreation, o.OutputQueueSize)
	}
	return &Acquirer{
		dev:    dev,
		events: make(chan Event, o.EventQueueSize),
		out:    make(chan Output, o.OutputQueueSize),
		start:  make(chan struct{}, 1),
	}, nil
}

// Output returns the queue of published records.
func (a *Acquirer) Output() <-chan Output {
	return a.out
}

func (a *Acquirer) State() State {
	return State(a.state.Load())
}

// Dropped returns the number of interrupt notifications lost on a full event
// queue.
func (a *Acquirer) Dropped() uint64 {
	return a.dropped.Load()
}

// Faults returns the number of bus errors met while active.
func (a *Acquirer) Faults() uint64 {
	return a.faults.Load()
}

// HandleInterrupt maps an interrupt line to a notification and queues it
// without blocking. It never touches the bus and is safe to call from edge
// callbacks.
func (a *Acquirer) HandleInterrupt(line int) {
	var ev Event
	switch line {
	case LineData:
		ev = EventNewData
	case LineDetection:
		ev = EventNewDetection
	default:
		return
	}
	select {
	case a.events <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Start requests the transition to active. Repeated requests collapse into
// one.
func (a *Acquirer) Start() {
	a.mx.Lock()
	defer a.mx.Unlock()
	if a.stop != nil {
		return
	}
	a.stop = make(chan struct{})
	select {
	case a.start <- struct{}{}:
	default:
	}
}

// Stop returns the acquisition to idle. Notifications already queued are
// kept and handled after the next Start. Once Stop returns nothing more is
// published until the next Start.
func (a *Acquirer) Stop() {
	a.mx.Lock()
	if a.stop == nil {
		a.mx.Unlock()
		return
	}
	close(a.stop)
	a.stop = nil
	done := a.done
	a.done = nil
	a.mx.Unlock()
	if done != nil {
		<-done
	}
}

// Run executes the acquisition loop until ctx is done.
func (a *Acquirer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.start:
		}
		a.mx.Lock()
		stop := a.stop
		var done chan struct{}
		if stop != nil {
			done = make(chan struct{})
			a.done = done
		}
		a.mx.Unlock()
		if stop == nil {
			continue
		}
		a.active(ctx, stop)
		a.state.Store(int32(StateIdle))
		close(done)
		slog.Debug("acquisition idle")
	}
}

func (a *Acquirer) active(ctx context.Context, stop <-chan struct{}) {
	err := a.dev.ClearDataReady(ctx)
	if err != nil {
		a.fault(ctx, stop, EventNewData, fmt.Errorf("warm-up read: %w", err))
	}
	a.state.Store(int32(StateActive))
	slog.Debug("acquisition active")
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case ev := <-a.events:
			a.handle(ctx, stop, ev)
		}
	}
}

func (a *Acquirer) handle(ctx context.Context, stop <-chan struct{}, ev Event) {
	switch ev {
	case EventNewData:
		a.newData(ctx, stop)
	case EventNewDetection:
		a.newDetection(ctx, stop)
	}
}

func (a *Acquirer) newData(ctx context.Context, stop <-chan struct{}) {
	ready, err := a.dev.DataReady(ctx)
	if err != nil {
		a.fault(ctx, stop, EventNewData, err)
		return
	}
	if !ready {
		return
	}
	raw, err := a.dev.ReadRaw(ctx)
	if err != nil {
		a.fault(ctx, stop, EventNewData, err)
		return
	}
	a.publish(ctx, stop, AccelerometerSample{Raw: raw, FullScale: a.dev.FullScale(), At: snsctx.Now(ctx)})
}

func (a *Acquirer) newDetection(ctx context.Context, stop <-chan struct{}) {
	config := a.dev.Config()
	src, err := a.dev.ClickSource(ctx)
	if err != nil {
		a.fault(ctx, stop, EventNewDetection, err)
		return
	}
	if src&clickSrcAxes != 0 {
		a.publish(ctx, stop, ClickDetected{Source: src, At: snsctx.Now(ctx)})
	}
	if !config.FallDetection {
		return
	}
	src, err = a.dev.FallSource(ctx)
	if err != nil {
		a.fault(ctx, stop, EventNewDetection, err)
		return
	}
	if src&igSrcIA != 0 {
		a.publish(ctx, stop, FallDetected{Source: src, At: snsctx.Now(ctx)})
	}
}

func (a *Acquirer) fault(ctx context.Context, stop <-chan struct{}, ev Event, err error) {
	a.faults.Add(1)
	slog.Error("acquisition bus error", "event", ev, "error", err)
	a.publish(ctx, stop, AcquisitionFault{Event: ev, Err: err})
}

// publish blocks on a full output queue. A record still pending when the
// activation stops is dropped.
func (a *Acquirer) publish(ctx context.Context, stop <-chan struct{}, out Output) {
	select {
	case <-stop:
		return
	default:
	}
	select {
	case a.out <- out:
	case <-stop:
		slog.Debug("acquisition stopped, record dropped", "output", fmt.Sprintf("%T", out))
	case <-ctx.Done():
	}
}
