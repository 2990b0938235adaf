package irq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLevels struct {
	mx    sync.Mutex
	steps [][]byte
	done  chan struct{}
}

func (s *scriptedLevels) Read(ctx context.Context, id ...int) ([]byte, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(s.steps) == 0 {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
		return []byte{0, 0, 0, 0}, nil
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step == nil {
		return nil, errors.New("adapter busy")
	}
	return step, nil
}

func TestPollSource_RisingEdges(t *testing.T) {
	reader := &scriptedLevels{
		steps: [][]byte{
			{0, 1, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 0, 0},
			nil,
			{0, 1, 1, 0},
			{0, 1, 1, 0},
		},
		done: make(chan struct{}),
	}
	var mx sync.Mutex
	var lines []int
	src := NewPollSource(reader, map[int]int{1: 1, 2: 2}, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		errc <- src.Run(ctx, func(line int) {
			mx.Lock()
			lines = append(lines, line)
			mx.Unlock()
		})
	}()
	select {
	case <-reader.done:
	case <-time.After(time.Second):
		require.FailNow(t, "script not consumed")
	}
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	mx.Lock()
	defer mx.Unlock()
	assert.ElementsMatch(t, []int{1, 1, 2}, lines)
	assert.Equal(t, 1, lines[0])
}

func TestPollSource_NoLines(t *testing.T) {
	src := NewPollSource(&scriptedLevels{}, nil, time.Millisecond)
	assert.ErrorIs(t, src.Run(context.Background(), func(int) {}), ErrNoLines)
}
