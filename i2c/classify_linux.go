//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mklimuk/accmon"
)

// errno values reported by the linux i2c-dev ioctl
var errnoKinds = []struct {
	errno unix.Errno
	kind  error
}{
	{unix.EREMOTEIO, accmon.ErrBusNack},
	{unix.ENXIO, accmon.ErrBusNack},
	{unix.EAGAIN, accmon.ErrBusArbitrationLost},
	{unix.ETIMEDOUT, accmon.ErrBusTimeout},
	{unix.EBUSY, accmon.ErrBusBusy},
}

// classify maps an i2c-dev failure onto the bus error variants. periph
// formats the errno into its message, so the text is matched when the errno
// itself is not in the chain.
func classify(err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		for _, k := range errnoKinds {
			if errno == k.errno {
				return fmt.Errorf("%w: %w", k.kind, err)
			}
		}
		return err
	}
	msg := err.Error()
	for _, k := range errnoKinds {
		if strings.Contains(msg, k.errno.Error()) {
			return fmt.Errorf("%w: %w", k.kind, err)
		}
	}
	return err
}
