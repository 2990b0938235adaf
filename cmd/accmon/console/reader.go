package console

import (
	"context"
	"errors"
	"io"

	"github.com/chzyer/readline"
)

// Prompt is shown in front of every console line.
const Prompt = ">> "

// LineFunc receives one console line. Returning an error ends ReadLines.
type LineFunc func(ctx context.Context, line string) error

// Reader is an interactive line editor with history.
type Reader struct {
	rl *readline.Instance
}

func NewReader() (*Reader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Reader{rl: rl}, nil
}

// Stdout returns a writer which keeps the prompt below printed output.
func (r *Reader) Stdout() io.Writer {
	return r.rl.Stdout()
}

// ReadLines calls fn for every line until ctx is done, the user interrupts
// the console or fn fails. Interrupt and end of input return nil.
func (r *Reader) ReadLines(ctx context.Context, fn LineFunc) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line, err := r.rl.Readline()
			if err != nil {
				errs <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			err := fn(ctx, line)
			if err != nil {
				return err
			}
		}
	}
}

func (r *Reader) Close() error {
	return r.rl.Close()
}
