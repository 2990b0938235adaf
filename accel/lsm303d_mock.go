package accel

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/mklimuk/accmon"
)

// MockBusBehaviorFunc is consulted before every transfer. Returning an error
// fails the transfer without touching the register file.
type MockBusBehaviorFunc func(op accmon.BusOp, reg byte) error

// RegisterWrite is one register write seen by MockBus.
type RegisterWrite struct {
	Register byte
	Value    byte
}

var _ accmon.I2CBus = &MockBus{}
var _ accmon.Transactor = &MockBus{}

// MockBus is an in-memory LSM303D register file behind a two-wire transport.
// It honours the register pointer and the auto-increment bit, clears the data
// ready flag once the axes are read and clears latched click and interrupt
// generator sources on read.
type MockBus struct {
	mx       sync.Mutex
	addr     byte
	regs     [registerMapSize]byte
	pointer  byte
	inc      bool
	behavior MockBusBehaviorFunc
	writes   []RegisterWrite
	pending  []RawSample
}

// NewMockBus creates a register file answering at addr.
//
// Example usage:
//
//	bus := NewMockBus(AddrSA0High)
//	bus.SetBehavior(func(op accmon.BusOp, reg byte) error {
//		if op == accmon.OpWrite && reg == 0x21 {
//			return accmon.ErrBusNack
//		}
//		return nil
//	})
func NewMockBus(addr byte) *MockBus {
	m := &MockBus{addr: addr}
	m.regs[regWhoAmI] = whoAmIValue
	return m
}

func (m *MockBus) SetBehavior(behavior MockBusBehaviorFunc) {
	m.mx.Lock()
	m.behavior = behavior
	m.mx.Unlock()
}

// Register returns the current content of reg.
func (m *MockBus) Register(reg byte) byte {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.regs[reg%registerMapSize]
}

// SetRegister sets reg as the device would.
func (m *MockBus) SetRegister(reg, value byte) {
	m.mx.Lock()
	m.regs[reg%registerMapSize] = value
	m.mx.Unlock()
}

// PutSample loads the axis registers and raises the data ready flag. While a
// sample is waiting to be read, new ones are queued and loaded one by one as
// the axes are read.
func (m *MockBus) PutSample(raw RawSample) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.regs[regStatusA]&statusAZYXADA != 0 {
		m.pending = append(m.pending, raw)
		return
	}
	m.load(raw)
}

func (m *MockBus) load(raw RawSample) {
	binary.LittleEndian.PutUint16(m.regs[regOutXLA:], uint16(raw.X))
	binary.LittleEndian.PutUint16(m.regs[regOutYLA:], uint16(raw.Y))
	binary.LittleEndian.PutUint16(m.regs[regOutZLA:], uint16(raw.Z))
	m.regs[regStatusA] |= statusAZYXADA
}

// Pending returns the number of samples not read yet, including the one
// loaded in the axis registers.
func (m *MockBus) Pending() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	n := len(m.pending)
	if m.regs[regStatusA]&statusAZYXADA != 0 {
		n++
	}
	return n
}

// PutClick latches a click source.
func (m *MockBus) PutClick(src byte) {
	m.SetRegister(regClickSrc, src|clickSrcIA)
}

// PutFall latches a free fall event on interrupt generator 1.
func (m *MockBus) PutFall() {
	m.SetRegister(regIGSrc1, igSrcIA|0x15)
}

// Writes returns the register writes seen so far.
func (m *MockBus) Writes() []RegisterWrite {
	m.mx.Lock()
	defer m.mx.Unlock()
	return append([]RegisterWrite(nil), m.writes...)
}

func (m *MockBus) ResetWrites() {
	m.mx.Lock()
	m.writes = nil
	m.mx.Unlock()
}

func (m *MockBus) WriteToAddr(_ context.Context, address byte, buffer []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.write(address, buffer)
}

func (m *MockBus) ReadFromAddr(_ context.Context, address byte, buffer []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.read(address, buffer)
}

func (m *MockBus) Tx(_ context.Context, address byte, w, r []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.write(address, w)
	if err != nil {
		return err
	}
	return m.read(address, r)
}

func (m *MockBus) Release(_ context.Context) error {
	return nil
}

func (m *MockBus) write(address byte, buffer []byte) error {
	if address != m.addr || len(buffer) == 0 {
		return accmon.ErrBusNack
	}
	reg := buffer[0] &^ autoIncrement
	if m.behavior != nil {
		op := accmon.OpWrite
		if len(buffer) == 1 {
			op = accmon.OpRead
		}
		if err := m.behavior(op, reg); err != nil {
			return err
		}
	}
	m.pointer = reg % registerMapSize
	m.inc = buffer[0]&autoIncrement != 0
	for i, value := range buffer[1:] {
		if i > 0 && !m.inc {
			break
		}
		r := (reg + byte(i)) % registerMapSize
		m.regs[r] = value
		m.writes = append(m.writes, RegisterWrite{Register: r, Value: value})
		if r == regCtrl0 {
			// reboot bit is self-clearing
			m.regs[r] &^= ctrl0Boot
		}
	}
	return nil
}

func (m *MockBus) read(address byte, buffer []byte) error {
	if address != m.addr {
		return accmon.ErrBusNack
	}
	reg := m.pointer
	for i := range buffer {
		buffer[i] = m.regs[reg]
		switch reg {
		case regOutZHA:
			m.regs[regStatusA] &^= statusAZYXADA
			if len(m.pending) > 0 {
				m.load(m.pending[0])
				m.pending = m.pending[1:]
			}
		case regClickSrc, regIGSrc1:
			m.regs[reg] = 0x00
		}
		if m.inc {
			reg = (reg + 1) % registerMapSize
		}
	}
	return nil
}
