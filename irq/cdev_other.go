//go:build !linux

package irq

import (
	"context"
	"errors"
)

var ErrCdevUnsupported = errors.New("GPIO character device is only available on linux")

type CdevSource struct{}

func NewCdevSource(chip string, offsets map[int]int) *CdevSource {
	return &CdevSource{}
}

func (s *CdevSource) Run(ctx context.Context, handler Handler) error {
	return ErrCdevUnsupported
}
