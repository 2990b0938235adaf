package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobot "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/accmon"
)

type fakeConnection struct {
	gobot.Connection
	written [][]byte
	read    []byte
	block   map[uint8][]byte
	short   bool
	closed  bool
}

func (c *fakeConnection) Write(b []byte) (int, error) {
	c.written = append(c.written, append([]byte(nil), b...))
	if c.short {
		return len(b) - 1, nil
	}
	return len(b), nil
}

func (c *fakeConnection) Read(b []byte) (int, error) {
	return copy(b, c.read), nil
}

func (c *fakeConnection) ReadBlockData(reg uint8, b []byte) error {
	data, ok := c.block[reg]
	if !ok {
		return errors.New("unexpected register")
	}
	copy(b, data)
	return nil
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

type fakeConnector struct {
	gobot.Connector
	conns  map[int]*fakeConnection
	opened []int
}

func (c *fakeConnector) GetI2cConnection(address int, bus int) (gobot.Connection, error) {
	c.opened = append(c.opened, address)
	conn, ok := c.conns[address]
	if !ok {
		return nil, errors.New("no device")
	}
	return conn, nil
}

func TestGobotBus(t *testing.T) {
	conn := &fakeConnection{
		read:  []byte{0xAA, 0xBB},
		block: map[uint8][]byte{0xA8: {1, 2, 3, 4, 5, 6}},
	}
	connector := &fakeConnector{conns: map[int]*fakeConnection{0x1D: conn}}
	bus := NewGobotBus(connector, 2)
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x1D, []byte{0x20, 0x17}))
	buf := make([]byte, 2)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x1D, buf))
	assert.Equal(t, []byte{0xAA, 0xBB}, buf)

	r := make([]byte, 6)
	require.NoError(t, bus.Tx(ctx, 0x1D, []byte{0xA8}, r))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, r)

	assert.Equal(t, [][]byte{{0x20, 0x17}}, conn.written)
	assert.Equal(t, []int{0x1D}, connector.opened, "connection is reused")

	err := bus.WriteToAddr(ctx, 0x1E, []byte{0x00})
	assert.Error(t, err)

	require.NoError(t, bus.Close())
	assert.True(t, conn.closed)
}

func TestGobotBus_ShortWriteIsNack(t *testing.T) {
	conn := &fakeConnection{short: true}
	bus := NewGobotBus(&fakeConnector{conns: map[int]*fakeConnection{0x1D: conn}}, 0)
	err := bus.WriteToAddr(context.Background(), 0x1D, []byte{0x20, 0x17})
	assert.ErrorIs(t, err, accmon.ErrBusNack)
}
