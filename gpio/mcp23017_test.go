package gpio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/regbus"
)

type MockRegisterBus struct {
	mock.Mock
}

func (m *MockRegisterBus) WriteRegisters(ctx context.Context, device, start byte, data []byte) error {
	args := m.Called(ctx, device, start, data)
	return args.Error(0)
}

func (m *MockRegisterBus) ReadRegisters(ctx context.Context, device, start byte, buffer []byte) error {
	args := m.Called(ctx, device, start, buffer)
	if fill, ok := args.Get(0).([]byte); ok {
		copy(buffer, fill)
	}
	return args.Error(1)
}

func TestMCP23017_InitInputs(t *testing.T) {
	bus := &MockRegisterBus{}
	ctx := context.Background()
	bus.On("WriteRegisters", ctx, byte(DefaultMCP23017Address), byte(0x00), []byte{0xFF, 0xFF}).Return(nil).Once()
	bus.On("WriteRegisters", ctx, byte(DefaultMCP23017Address), byte(0x02), []byte{0x00, 0x00}).Return(nil).Once()
	bus.On("WriteRegisters", ctx, byte(DefaultMCP23017Address), byte(0x0C), []byte{0x03, 0x80}).Return(nil).Once()

	m := NewMCP23017(bus, DefaultMCP23017Address)
	require.NoError(t, m.InitInputs(ctx, 0x8003))
	bus.AssertExpectations(t)
}

func TestMCP23017_InitInputsNack(t *testing.T) {
	bus := &MockRegisterBus{}
	bus.On("WriteRegisters", mock.Anything, mock.Anything, byte(0x00), mock.Anything).Return(accmon.ErrBusNack)

	m := NewMCP23017(bus, DefaultMCP23017Address)
	err := m.InitInputs(context.Background(), 0)
	assert.ErrorIs(t, err, accmon.ErrBusNack)
	bus.AssertNumberOfCalls(t, "WriteRegisters", 1)
}

func TestMCP23017_Read(t *testing.T) {
	bus := &MockRegisterBus{}
	bus.On("ReadRegisters", mock.Anything, byte(DefaultMCP23017Address), byte(0x12), mock.Anything).
		Return([]byte{0b0000_0101, 0b1000_0000}, nil)

	m := NewMCP23017(bus, DefaultMCP23017Address)
	ports, err := m.Ports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8005), ports)

	levels, err := m.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, PinCount)
	assert.Equal(t, []byte{1, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, levels)
}

func TestMCP23017_ReadError(t *testing.T) {
	bus := &MockRegisterBus{}
	bus.On("ReadRegisters", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, accmon.ErrBusTimeout)

	m := NewMCP23017(bus, DefaultMCP23017Address)
	_, err := m.Read(context.Background())
	assert.ErrorIs(t, err, accmon.ErrBusTimeout)
}

// wireBus records register transfers as they leave the engine and serves
// reads from a 16 bit port value.
type wireBus struct {
	writes [][]byte
	ports  [2]byte
}

func (b *wireBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.writes = append(b.writes, append([]byte(nil), buffer...))
	return nil
}

func (b *wireBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	copy(buffer, b.ports[:])
	return nil
}

func (b *wireBus) Release(ctx context.Context) error {
	return nil
}

func TestMCP23017_OverSharedEngine(t *testing.T) {
	bus := &wireBus{ports: [2]byte{0x02, 0x01}}
	ctx := context.Background()
	engine := regbus.New(bus)

	m := NewMCP23017(engine.Sequential(), DefaultMCP23017Address)
	require.NoError(t, m.InitInputs(ctx, 0))
	ports, err := m.Ports(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), ports)

	assert.Equal(t, [][]byte{
		{0x00, 0xFF, 0xFF},
		{0x02, 0x00, 0x00},
		{0x0C, 0x00, 0x00},
		{0x12},
	}, bus.writes)

	// sensor bursts on the same engine keep the auto increment flag
	require.NoError(t, engine.WriteRegisters(ctx, 0x1D, 0x20, []byte{0x17, 0x00}))
	assert.Equal(t, []byte{0xA0, 0x17, 0x00}, bus.writes[len(bus.writes)-1])
}
