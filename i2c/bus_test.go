package i2c

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/accmon/regbus"
)

func TestGenericBus_RegisterTransactions(t *testing.T) {
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x1D, W: []byte{0x0F}, R: []byte{0x49}},
			{Addr: 0x1D, W: []byte{0x20, 0x17}},
			{Addr: 0x1D, W: []byte{0xA8}, R: []byte{0x34, 0x12, 0x00, 0x00, 0xFF, 0xFF}},
		},
	}
	bus := NewBus(playback)
	engine := regbus.New(bus)
	ctx := context.Background()

	id, err := engine.ReadRegister(ctx, 0x1D, 0x0F)
	require.NoError(t, err)
	assert.Equal(t, byte(0x49), id)
	require.NoError(t, engine.WriteRegister(ctx, 0x1D, 0x20, 0x17))
	data, err := engine.Read(ctx, 0x1D, 0x28, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12, 0x00, 0x00, 0xFF, 0xFF}, data)

	require.NoError(t, bus.SetSpeed(400*physic.KiloHertz))
	assert.NoError(t, bus.Close())
}

func TestGenericBus_UnexpectedTransfer(t *testing.T) {
	playback := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x1D, W: []byte{0x0F}, R: []byte{0x49}}},
		DontPanic: true,
	}
	bus := NewBus(playback)
	err := bus.WriteToAddr(context.Background(), 0x1E, []byte{0x20, 0x17})
	assert.Error(t, err)
}
