package accmon

import (
	"context"
)

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a raw two-wire transport. Each call is one complete bus
// transaction terminated with a stop condition.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Transactor is implemented by transports able to write and read within a
// single transaction using a repeated start.
type Transactor interface {
	Tx(ctx context.Context, address byte, w, r []byte) error
}

// RegisterBus is the register level view of a device used by drivers.
type RegisterBus interface {
	WriteRegisters(ctx context.Context, device, start byte, data []byte) error
	ReadRegisters(ctx context.Context, device, start byte, buffer []byte) error
}
