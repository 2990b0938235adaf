package accmon

import (
	"errors"
	"fmt"
)

var (
	// ErrBusBusy is a transient condition: the bus engine has not finished the
	// previous command. Transports return it so the caller can wait for idle.
	ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

	ErrBusTimeout         = errors.New("bus busy timeout")
	ErrBusNack            = errors.New("bus NACK")
	ErrBusArbitrationLost = errors.New("bus arbitration lost")

	ErrInvalidConfigValue = errors.New("invalid configuration value")
	ErrQueueCreation      = errors.New("queue creation failure")
)

type BusOp string

const (
	OpRead  BusOp = "read"
	OpWrite BusOp = "write"
)

// BusError describes a failed register transaction. Kind is one of
// ErrBusTimeout, ErrBusNack or ErrBusArbitrationLost; Err is the transport
// error, if any.
type BusError struct {
	Kind     error
	Op       BusOp
	Device   byte
	Register byte
	Err      error
}

func (e *BusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s dev %#02x reg %#02x: %s", e.Op, e.Device, e.Register, e.Kind)
	}
	return fmt.Sprintf("%s dev %#02x reg %#02x: %s: %s", e.Op, e.Device, e.Register, e.Kind, e.Err)
}

func (e *BusError) Is(target error) bool {
	return target == e.Kind
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// BusErrorKind returns the bus error variant carried by err. Errors that were
// not classified by the transport are reported as NACKs since the device did
// not acknowledge the transfer.
func BusErrorKind(err error) error {
	switch {
	case errors.Is(err, ErrBusTimeout):
		return ErrBusTimeout
	case errors.Is(err, ErrBusArbitrationLost):
		return ErrBusArbitrationLost
	default:
		return ErrBusNack
	}
}

// IsBusError reports whether err is one of the bus error variants.
func IsBusError(err error) bool {
	return errors.Is(err, ErrBusTimeout) || errors.Is(err, ErrBusNack) || errors.Is(err, ErrBusArbitrationLost)
}
