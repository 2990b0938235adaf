// Package regbus implements blocking register transactions on top of a raw
// two-wire transport.
package regbus

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/snsctx"
)

// AutoIncrement is OR'd into the register address of multi-register
// transfers on ST sensors. Without it the device keeps returning the first
// register.
const AutoIncrement byte = 0x80

const DefaultMapSize = 64

var ErrBurstLength = errors.New("burst length out of register map")

var _ accmon.RegisterBus = &Engine{}

type Opts struct {
	// MapSize is the number of addressable device registers.
	MapSize int
	// BusyTimeout bounds the wait for an idle bus. Zero waits until the bus
	// becomes idle or the context is done.
	BusyTimeout time.Duration
	// BusyPoll is the interval between idle checks.
	BusyPoll time.Duration
	// AutoIncrement is the flag set in the register address of bursts. Zero
	// sends plain addresses.
	AutoIncrement byte
}

type Opt func(*Opts)

func WithMapSize(size int) Opt {
	return func(o *Opts) {
		o.MapSize = size
	}
}

func WithBusyTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.BusyTimeout = timeout
	}
}

func WithBusyPoll(poll time.Duration) Opt {
	return func(o *Opts) {
		o.BusyPoll = poll
	}
}

func WithAutoIncrement(flag byte) Opt {
	return func(o *Opts) {
		o.AutoIncrement = flag
	}
}

// Engine serializes register transactions on a single bus. The transaction
// body runs under mx; the wait for an idle bus happens outside of it.
type Engine struct {
	mx        sync.Mutex
	transport accmon.I2CBus
	config    Opts
	buf       []byte
}

func New(transport accmon.I2CBus, opts ...Opt) *Engine {
	config := Opts{
		MapSize:       DefaultMapSize,
		BusyPoll:      50 * time.Microsecond,
		AutoIncrement: AutoIncrement,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Engine{
		transport: transport,
		config:    config,
		buf:       make([]byte, 0, config.MapSize+1),
	}
}

// Sequential returns a view of the engine for devices that step through
// their registers without an address flag, like the MCP23017. It sends plain
// register addresses and shares the engine lock.
func (e *Engine) Sequential() *Sequential {
	return &Sequential{engine: e}
}

// WriteRegisters writes data to consecutive registers starting at start.
func (e *Engine) WriteRegisters(ctx context.Context, device, start byte, data []byte) error {
	return e.writeRegisters(ctx, e.config.AutoIncrement, device, start, data)
}

func (e *Engine) writeRegisters(ctx context.Context, flag, device, start byte, data []byte) error {
	if err := e.checkBurst(start, len(data)); err != nil {
		return err
	}
	reg := registerAddress(start, len(data), flag)
	if snsctx.IsVerbose(ctx) {
		slog.Debug("bus write", "device", device, "register", reg, "data", hex.EncodeToString(data))
	}
	return e.run(ctx, accmon.OpWrite, device, start, func() error {
		e.buf = append(e.buf[:0], reg)
		e.buf = append(e.buf, data...)
		return e.transport.WriteToAddr(ctx, device, e.buf)
	})
}

// WriteRegister writes a single register.
func (e *Engine) WriteRegister(ctx context.Context, device, reg, value byte) error {
	return e.WriteRegisters(ctx, device, reg, []byte{value})
}

// ReadRegisters fills buffer with the content of consecutive registers
// starting at start. The register pointer is written first and the read
// phase follows, with a repeated start when the transport supports it.
func (e *Engine) ReadRegisters(ctx context.Context, device, start byte, buffer []byte) error {
	return e.readRegisters(ctx, e.config.AutoIncrement, device, start, buffer)
}

func (e *Engine) readRegisters(ctx context.Context, flag, device, start byte, buffer []byte) error {
	if err := e.checkBurst(start, len(buffer)); err != nil {
		return err
	}
	reg := registerAddress(start, len(buffer), flag)
	err := e.run(ctx, accmon.OpRead, device, start, func() error {
		if tx, ok := e.transport.(accmon.Transactor); ok {
			return tx.Tx(ctx, device, []byte{reg}, buffer)
		}
		err := e.transport.WriteToAddr(ctx, device, []byte{reg})
		if err != nil {
			return err
		}
		return e.transport.ReadFromAddr(ctx, device, buffer)
	})
	if err != nil {
		return err
	}
	if snsctx.IsVerbose(ctx) {
		slog.Debug("bus read", "device", device, "register", reg, "data", hex.EncodeToString(buffer))
	}
	return nil
}

// Read returns count registers starting at start.
func (e *Engine) Read(ctx context.Context, device, start byte, count int) ([]byte, error) {
	buf := make([]byte, count)
	err := e.ReadRegisters(ctx, device, start, buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadRegister reads a single register.
func (e *Engine) ReadRegister(ctx context.Context, device, reg byte) (byte, error) {
	buf := []byte{0x00}
	err := e.ReadRegisters(ctx, device, reg, buf)
	return buf[0], err
}

func (e *Engine) run(ctx context.Context, op accmon.BusOp, device, register byte, tx func() error) error {
	var deadline time.Time
	if e.config.BusyTimeout > 0 {
		deadline = time.Now().Add(e.config.BusyTimeout)
	}
	for {
		e.mx.Lock()
		err := tx()
		e.mx.Unlock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, accmon.ErrBusBusy) {
			return &accmon.BusError{Kind: accmon.BusErrorKind(err), Op: op, Device: device, Register: register, Err: err}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return &accmon.BusError{Kind: accmon.ErrBusTimeout, Op: op, Device: device, Register: register, Err: err}
		}
		timer := time.NewTimer(e.config.BusyPoll)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for idle bus: %w", ctx.Err())
		}
	}
}

func (e *Engine) checkBurst(start byte, count int) error {
	if count < 1 || int(start)+count > e.config.MapSize {
		return fmt.Errorf("%w: %d registers from %#02x", ErrBurstLength, count, start)
	}
	return nil
}

func registerAddress(start byte, count int, flag byte) byte {
	if count > 1 {
		return start | flag
	}
	return start
}

var _ accmon.RegisterBus = &Sequential{}

type Sequential struct {
	engine *Engine
}

func (s *Sequential) WriteRegisters(ctx context.Context, device, start byte, data []byte) error {
	return s.engine.writeRegisters(ctx, 0, device, start, data)
}

func (s *Sequential) ReadRegisters(ctx context.Context, device, start byte, buffer []byte) error {
	return s.engine.readRegisters(ctx, 0, device, start, buffer)
}
