package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
)

// MaxLineLength is the longest console line accepted.
const MaxLineLength = 50

var ErrUnknownCommand = errors.New("command not recognised")
var ErrCommandTooLong = errors.New("command too long")

type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdHelp
	CmdStart
	CmdStop
	CmdGetSetup
	CmdSetRange
	CmdSetRate
	CmdSetBandwidth
	CmdSetAveraging
	CmdSetClick
	CmdSetFall
)

// Command is a parsed console line. Only the field matching Kind is set.
type Command struct {
	Kind      CommandKind
	FullScale accel.FullScale
	Rate      accel.Rate
	Bandwidth accel.Bandwidth
	Depth     int
	Enabled   bool
}

var helpText = []string{
	"List of available commands:",
	"help",
	"start",
	"stop",
	"acc get setup",
	"acc set range [2g|4g|6g|8g|16g]",
	"acc set rate [3.125Hz|6.25Hz|12.5Hz|25Hz|50Hz|",
	"              100Hz|200Hz|400Hz|800Hz|1600Hz]",
	"acc set bw [50Hz|194Hz|362Hz|773Hz]",
	"acc set avg number [1-999]",
	"acc set click det [on|off]",
	"acc set fall det [on|off]",
}

// ParseCommand parses one console line. Keywords are case insensitive and
// surrounding whitespace is ignored. A known command with a bad argument
// returns an error wrapping accmon.ErrInvalidConfigValue.
func ParseCommand(line string) (Command, error) {
	if len(line) > MaxLineLength {
		return Command{}, ErrCommandTooLong
	}
	fields := strings.Fields(strings.ToLower(line))
	switch len(fields) {
	case 0:
		return Command{Kind: CmdNone}, nil
	case 1:
		switch fields[0] {
		case "help":
			return Command{Kind: CmdHelp}, nil
		case "start":
			return Command{Kind: CmdStart}, nil
		case "stop":
			return Command{Kind: CmdStop}, nil
		}
		return Command{}, ErrUnknownCommand
	}
	if fields[0] != "acc" {
		return Command{}, ErrUnknownCommand
	}
	args := fields[1:]
	if len(args) == 2 && args[0] == "get" && args[1] == "setup" {
		return Command{Kind: CmdGetSetup}, nil
	}
	if len(args) < 3 || args[0] != "set" {
		return Command{}, ErrUnknownCommand
	}
	value := args[len(args)-1]
	switch strings.Join(args[1:len(args)-1], " ") {
	case "range":
		fs, err := accel.ParseFullScale(value)
		return Command{Kind: CmdSetRange, FullScale: fs}, err
	case "rate":
		rate, err := accel.ParseRate(value)
		return Command{Kind: CmdSetRate, Rate: rate}, err
	case "bw":
		bw, err := accel.ParseBandwidth(value)
		return Command{Kind: CmdSetBandwidth, Bandwidth: bw}, err
	case "avg number":
		depth, err := strconv.Atoi(value)
		if err != nil {
			return Command{}, fmt.Errorf("%w: averaging depth %q", accmon.ErrInvalidConfigValue, value)
		}
		return Command{Kind: CmdSetAveraging, Depth: depth}, nil
	case "click det":
		on, err := parseSwitch(value)
		return Command{Kind: CmdSetClick, Enabled: on}, err
	case "fall det":
		on, err := parseSwitch(value)
		return Command{Kind: CmdSetFall, Enabled: on}, err
	}
	return Command{}, ErrUnknownCommand
}

func parseSwitch(value string) (bool, error) {
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", accmon.ErrInvalidConfigValue, value)
}
