package i2c

import (
	"context"
	"fmt"
	"io"
	"sync"

	gobot "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/accmon"
)

// maxBlockRead is the SMBus limit for a combined register read.
const maxBlockRead = 32

var _ accmon.I2CBus = &GobotBus{}
var _ accmon.Transactor = &GobotBus{}

// GobotBus runs transfers through gobot connections, one per device address.
type GobotBus struct {
	mx        sync.Mutex
	connector gobot.Connector
	bus       int
	conns     map[byte]gobot.Connection
	closer    io.Closer
}

func NewGobotBus(connector gobot.Connector, bus int) *GobotBus {
	return &GobotBus{
		connector: connector,
		bus:       bus,
		conns:     make(map[byte]gobot.Connection),
	}
}

type finalizer func() error

func (f finalizer) Close() error {
	return f()
}

// NewNanoPiBus connects the I2C adaptor of a NanoPi NEO board.
func NewNanoPiBus(bus int) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, bus)
	b.closer = finalizer(npi.I2cBusAdaptor.Finalize)
	return b, nil
}

func (b *GobotBus) connection(address byte) (gobot.Connection, error) {
	if conn, ok := b.conns[address]; ok {
		return conn, nil
	}
	conn, err := b.connector.GetI2cConnection(int(address), b.bus)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %x on bus %d: %w", address, b.bus, err)
	}
	b.conns[address] = conn
	return conn, nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.write(address, buffer)
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.read(address, buffer)
}

// Tx uses an SMBus block read when w is a register pointer, falling back to
// separate write and read transfers otherwise.
func (b *GobotBus) Tx(ctx context.Context, address byte, w, r []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if len(w) == 1 && len(r) > 0 && len(r) <= maxBlockRead {
		conn, err := b.connection(address)
		if err != nil {
			return err
		}
		err = conn.ReadBlockData(w[0], r)
		if err != nil {
			return fmt.Errorf("could not read block from %x: %w", address, classify(err))
		}
		return nil
	}
	if len(w) > 0 {
		if err := b.write(address, w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return b.read(address, r)
	}
	return nil
}

func (b *GobotBus) write(address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to %x: %w", address, classify(err))
	}
	if n != len(buffer) {
		return fmt.Errorf("%w: short write to %x: %d of %d", accmon.ErrBusNack, address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) read(address byte, buffer []byte) error {
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from %x: %w", address, classify(err))
	}
	if n != len(buffer) {
		return fmt.Errorf("%w: short read from %x: %d of %d", accmon.ErrBusNack, address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close closes the device connections and finalizes the adaptor if the bus
// created it.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var first error
	for addr, conn := range b.conns {
		if err := conn.Close(); err != nil && first == nil {
			first = fmt.Errorf("could not close connection to %x: %w", addr, err)
		}
		delete(b.conns, addr)
	}
	if b.closer != nil {
		if err := b.closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
