//go:build !linux

package i2c

func classify(err error) error {
	return err
}
