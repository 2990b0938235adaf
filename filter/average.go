// Package filter implements a constant time moving average over a stream of
// triaxial samples.
package filter

import (
	"fmt"

	"github.com/mklimuk/accmon"
)

type Axis int

const (
	X Axis = iota
	Y
	Z
	NumAxes
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// DefaultCapacity is the largest window the filter can hold. Valid depths
// are [1, DefaultCapacity).
const DefaultCapacity = 1000

type window struct {
	buf  []int32
	head int
	sum  int64
}

// MovingAverage keeps one circular buffer and running sum per axis. The sum
// always equals the total of the last depth values pushed, so each push is
// O(1) regardless of depth. It is not safe for concurrent use; a single
// consumer owns it.
type MovingAverage struct {
	capacity int
	depth    int
	axes     [NumAxes]window
}

func NewMovingAverage(capacity, depth int) (*MovingAverage, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("%w: filter capacity %d", accmon.ErrInvalidConfigValue, capacity)
	}
	m := &MovingAverage{capacity: capacity, depth: 1}
	for i := range m.axes {
		m.axes[i].buf = make([]int32, capacity)
	}
	if err := m.SetDepth(depth); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MovingAverage) Capacity() int {
	return m.capacity
}

func (m *MovingAverage) Depth() int {
	return m.depth
}

// SetDepth changes the number of averaged samples. Values outside
// [1, capacity) are rejected and the current depth is kept. Accepted changes
// discard the history: the output ramps up from zero until depth new values
// have been pushed.
func (m *MovingAverage) SetDepth(depth int) error {
	if depth < 1 || depth >= m.capacity {
		return fmt.Errorf("%w: averaging depth %d not in [1, %d)", accmon.ErrInvalidConfigValue, depth, m.capacity)
	}
	if depth == m.depth {
		return nil
	}
	m.depth = depth
	m.Reset()
	return nil
}

// Reset clears the history of all axes.
func (m *MovingAverage) Reset() {
	for i := range m.axes {
		w := &m.axes[i]
		clear(w.buf)
		w.head = 0
		w.sum = 0
	}
}

// Push adds value to the axis window and returns the current average.
func (m *MovingAverage) Push(axis Axis, value int32) int32 {
	w := &m.axes[axis]
	out := (w.head - m.depth + m.capacity) % m.capacity
	w.sum += int64(value) - int64(w.buf[out])
	w.buf[w.head] = value
	w.head = (w.head + 1) % m.capacity
	return int32(w.sum / int64(m.depth))
}

// PushXYZ pushes one value per axis.
func (m *MovingAverage) PushXYZ(x, y, z int32) (int32, int32, int32) {
	return m.Push(X, x), m.Push(Y, y), m.Push(Z, z)
}
