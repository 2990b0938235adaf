package monitor

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/mklimuk/accmon/accel"
)

// Display renders console lines. It is only used from the printer goroutine.
type Display interface {
	Println(line string)
	Clear()
}

// Terminal is a Display writing to a terminal.
type Terminal struct {
	out *termenv.Output
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{out: termenv.NewOutput(w)}
}

func (t *Terminal) Println(line string) {
	_, _ = fmt.Fprintln(t.out, line)
}

func (t *Terminal) Clear() {
	t.out.ClearScreen()
}

// formatSample renders a milli-g sample in the acquisition table layout.
func formatSample(p accel.PhysicalSample) string {
	return fmt.Sprintf("%-10s%-10s%s", formatMilliG(p.X), formatMilliG(p.Y), formatMilliG(p.Z))
}

func formatMilliG(mg int32) string {
	sign := " "
	v := int64(mg)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%03d g", sign, v/1000, v%1000)
}
