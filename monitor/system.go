package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
	"github.com/mklimuk/accmon/filter"
)

const (
	DefaultCommandQueueSize = 10
	DefaultConsoleQueueSize = 10
)

const (
	sampleHeader    = "acc x:    acc y:    acc z:"
	msgNotRecognise = `Command not recognised. Type "help" for help.`
	msgTooLong      = "Command too long."
	msgNotRunning   = "acquisition is not running"
)

var ErrNotBooted = errors.New("system not booted")

type State int32

const (
	StateIdle State = iota
	StateAcquiring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Opts struct {
	EventQueueSize   int
	OutputQueueSize  int
	CommandQueueSize int
	ConsoleQueueSize int
	Averaging        int
	Display          Display
}

type Opt func(*Opts)

func WithQueues(events, output, commands, console int) Opt {
	return func(o *Opts) {
		o.EventQueueSize = events
		o.OutputQueueSize = output
		o.CommandQueueSize = commands
		o.ConsoleQueueSize = console
	}
}

func WithAveraging(depth int) Opt {
	return func(o *Opts) {
		o.Averaging = depth
	}
}

func WithDisplay(d Display) Opt {
	return func(o *Opts) {
		o.Display = d
	}
}

type consoleLine struct {
	text  string
	clear bool
}

// System is the console driven control loop. It owns the acquirer and the
// filter; the caller owns the device and feeds interrupts through
// HandleInterrupt.
type System struct {
	dev     *accel.LSM303D
	acq     *accel.Acquirer
	ctrl    *Controller
	display Display

	commands chan string
	console  chan consoleLine

	state  atomic.Int32
	booted atomic.Bool
}

func NewSystem(dev *accel.LSM303D, opts ...Opt) (*System, error) {
	o := Opts{
		EventQueueSize:   accel.DefaultEventQueueSize,
		OutputQueueSize:  accel.DefaultOutputQueueSize,
		CommandQueueSize: DefaultCommandQueueSize,
		ConsoleQueueSize: DefaultConsoleQueueSize,
		Averaging:        1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.CommandQueueSize < 1 {
		return nil, fmt.Errorf("%w: command queue size %d", accmon.ErrQueueCreation, o.CommandQueueSize)
	}
	if o.ConsoleQueueSize < 1 {
		return nil, fmt.Errorf("%w: console queue size %d", accmon.ErrQueueCreation, o.ConsoleQueueSize)
	}
	acq, err := accel.NewAcquirer(dev,
		accel.WithEventQueueSize(o.EventQueueSize),
		accel.WithOutputQueueSize(o.OutputQueueSize))
	if err != nil {
		return nil, err
	}
	avg, err := filter.NewMovingAverage(filter.DefaultCapacity, o.Averaging)
	if err != nil {
		return nil, err
	}
	if o.Display == nil {
		o.Display = NewTerminal(os.Stdout)
	}
	return &System{
		dev:      dev,
		acq:      acq,
		ctrl:     NewController(dev, acq, avg),
		display:  o.Display,
		commands: make(chan string, o.CommandQueueSize),
		console:  make(chan consoleLine, o.ConsoleQueueSize),
	}, nil
}

func (s *System) Controller() *Controller {
	return s.ctrl
}

func (s *System) Acquirer() *accel.Acquirer {
	return s.acq
}

func (s *System) State() State {
	return State(s.state.Load())
}

// HandleInterrupt forwards an interrupt line to the acquirer. It never blocks.
func (s *System) HandleInterrupt(line int) {
	s.acq.HandleInterrupt(line)
}

// Boot configures the sensor. An error is fatal: Run refuses to start until
// a Boot succeeds.
func (s *System) Boot(ctx context.Context) error {
	err := s.dev.Init(ctx)
	if err != nil {
		return fmt.Errorf("could not configure accelerometer: %w", err)
	}
	config := s.dev.Config()
	slog.Info("accelerometer configured",
		"address", fmt.Sprintf("%#x", s.dev.Address()),
		"range", config.FullScale,
		"rate", config.Rate,
		"bandwidth", config.Bandwidth)
	s.booted.Store(true)
	return nil
}

// Submit queues a console line for the control loop. Over-long lines are
// answered directly and never reach the loop.
func (s *System) Submit(ctx context.Context, line string) error {
	if len(line) > MaxLineLength {
		return s.send(ctx, consoleLine{text: msgTooLong})
	}
	select {
	case s.commands <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the acquisition and printer goroutines and runs the control
// loop until ctx is done.
func (s *System) Run(ctx context.Context) error {
	if !s.booted.Load() {
		return ErrNotBooted
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.acq.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.printer(ctx)
	}()
	err := s.control(ctx)
	cancel()
	wg.Wait()
	return err
}

func (s *System) printer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case l := <-s.console:
			if l.clear {
				s.display.Clear()
				continue
			}
			s.display.Println(l.text)
		}
	}
}

func (s *System) control(ctx context.Context) error {
	for {
		if s.State() == StateIdle {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line := <-s.commands:
				s.execute(ctx, line)
			}
			continue
		}
		// console input takes precedence over pending samples
		select {
		case <-s.commands:
			s.halt(ctx)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.commands:
			s.halt(ctx)
		case out := <-s.acq.Output():
			s.present(ctx, out)
		}
	}
}

func (s *System) halt(ctx context.Context) {
	s.ctrl.Stop()
	s.state.Store(int32(StateIdle))
	_ = s.send(ctx, consoleLine{clear: true})
}

func (s *System) execute(ctx context.Context, line string) {
	cmd, err := ParseCommand(line)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		s.println(ctx, msgNotRecognise)
		return
	case errors.Is(err, ErrCommandTooLong):
		s.println(ctx, msgTooLong)
		return
	case err != nil:
		s.println(ctx, fmt.Sprintf("Error: %v", err))
		return
	}
	switch cmd.Kind {
	case CmdNone:
	case CmdHelp:
		s.println(ctx, helpText...)
	case CmdGetSetup:
		s.println(ctx, s.ctrl.Setup().Lines()...)
	case CmdStart:
		s.drain()
		s.println(ctx, sampleHeader)
		s.ctrl.Start()
		s.state.Store(int32(StateAcquiring))
	case CmdStop:
		s.println(ctx, msgNotRunning)
	case CmdSetRange:
		s.reply(ctx, s.ctrl.SetFullScale(ctx, cmd.FullScale), "full scale range +/- %d g", cmd.FullScale.G())
	case CmdSetRate:
		s.reply(ctx, s.ctrl.SetOutputRate(ctx, cmd.Rate), "data read rate: %s", cmd.Rate)
	case CmdSetBandwidth:
		s.reply(ctx, s.ctrl.SetFilterBandwidth(ctx, cmd.Bandwidth), "anti-alias bandwidth: %s", cmd.Bandwidth)
	case CmdSetAveraging:
		s.reply(ctx, s.ctrl.SetAveragingDepth(cmd.Depth), "number of averaged samples: %d", cmd.Depth)
	case CmdSetClick:
		s.reply(ctx, s.ctrl.SetClickDetection(ctx, cmd.Enabled), "click detection %s", onOff(cmd.Enabled))
	case CmdSetFall:
		s.reply(ctx, s.ctrl.SetFallDetection(ctx, cmd.Enabled), "fall detection %s", onOff(cmd.Enabled))
	}
}

func (s *System) reply(ctx context.Context, err error, format string, args ...any) {
	if err != nil {
		slog.Warn("setting rejected", "error", err)
		s.println(ctx, fmt.Sprintf("Error: %v", err))
		return
	}
	s.println(ctx, fmt.Sprintf(format, args...))
}

// drain discards records left over from a previous acquisition.
func (s *System) drain() {
	for {
		select {
		case <-s.acq.Output():
		default:
			return
		}
	}
}

func (s *System) present(ctx context.Context, out accel.Output) {
	switch o := out.(type) {
	case accel.AccelerometerSample:
		s.println(ctx, formatSample(s.ctrl.Smooth(o)))
	case accel.ClickDetected:
		kind := "single"
		if o.Double() {
			kind = "double"
		}
		s.println(ctx, fmt.Sprintf("%s click on %s at %s", kind, o.Axes(), o.At.Format(time.TimeOnly)))
	case accel.FallDetected:
		s.println(ctx, fmt.Sprintf("fall detected at %s", o.At.Format(time.TimeOnly)))
	case accel.AcquisitionFault:
		s.println(ctx, fmt.Sprintf("Error: %s: %v", o.Event, o.Err))
	}
}

func (s *System) println(ctx context.Context, lines ...string) {
	for _, l := range lines {
		if s.send(ctx, consoleLine{text: l}) != nil {
			return
		}
	}
}

// send blocks on a full console queue.
func (s *System) send(ctx context.Context, l consoleLine) error {
	select {
	case s.console <- l:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
