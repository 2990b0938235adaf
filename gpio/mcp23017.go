// Package gpio drives I2C port expanders carrying the sensor interrupt lines.
package gpio

import (
	"context"
	"fmt"

	"github.com/mklimuk/accmon"
)

const DefaultMCP23017Address = 0x21

// PinCount is the number of expander pins: GPA0..GPA7 then GPB0..GPB7.
const PinCount = 16

// Register addresses with IOCON.BANK = 0, where every A register is directly
// followed by its B twin.
const (
	regIODIRA = 0x00
	regIPOLA  = 0x02
	regGPPUA  = 0x0C
	regGPIOA  = 0x12
)

// MCP23017 is a 16 pin expander sharing the bus with the sensor. Register
// transfers go through the same engine so they never interleave with sensor
// transactions. Pass the engine's Sequential view: the expander has no
// auto increment flag in its register address.
type MCP23017 struct {
	bus     accmon.RegisterBus
	address byte
}

func NewMCP23017(bus accmon.RegisterBus, address byte) *MCP23017 {
	return &MCP23017{bus: bus, address: address}
}

// InitInputs makes every pin a non inverted input and enables the pull-ups
// selected by pullUps (bit n is pin n).
func (m *MCP23017) InitInputs(ctx context.Context, pullUps uint16) error {
	err := m.bus.WriteRegisters(ctx, m.address, regIODIRA, []byte{0xFF, 0xFF})
	if err != nil {
		return fmt.Errorf("could not set pin directions: %w", err)
	}
	err = m.bus.WriteRegisters(ctx, m.address, regIPOLA, []byte{0x00, 0x00})
	if err != nil {
		return fmt.Errorf("could not set pin polarity: %w", err)
	}
	err = m.bus.WriteRegisters(ctx, m.address, regGPPUA, []byte{byte(pullUps), byte(pullUps >> 8)})
	if err != nil {
		return fmt.Errorf("could not set pull-ups: %w", err)
	}
	return nil
}

// Ports returns the GPIOA and GPIOB port registers as one word, GPA0 in bit 0.
func (m *MCP23017) Ports(ctx context.Context) (uint16, error) {
	buf := make([]byte, 2)
	err := m.bus.ReadRegisters(ctx, m.address, regGPIOA, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read ports: %w", err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// Read returns one byte per pin, 1 for high. It satisfies irq.LevelReader so
// the expander can feed a PollSource; id is ignored.
func (m *MCP23017) Read(ctx context.Context, id ...int) ([]byte, error) {
	ports, err := m.Ports(ctx)
	if err != nil {
		return nil, err
	}
	levels := make([]byte, PinCount)
	for pin := range levels {
		levels[pin] = byte(ports>>pin) & 0x01
	}
	return levels, nil
}
