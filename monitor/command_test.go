package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		expected Command
	}{
		{"", Command{Kind: CmdNone}},
		{"   ", Command{Kind: CmdNone}},
		{"help", Command{Kind: CmdHelp}},
		{" start ", Command{Kind: CmdStart}},
		{"STOP", Command{Kind: CmdStop}},
		{"acc get setup", Command{Kind: CmdGetSetup}},
		{"acc  get   setup", Command{Kind: CmdGetSetup}},
		{"acc set range 4g", Command{Kind: CmdSetRange, FullScale: accel.FullScale4G}},
		{"acc set range 16", Command{Kind: CmdSetRange, FullScale: accel.FullScale16G}},
		{"acc set rate 12.5Hz", Command{Kind: CmdSetRate, Rate: accel.Rate12Hz5}},
		{"acc set rate 1600", Command{Kind: CmdSetRate, Rate: accel.Rate1600Hz}},
		{"acc set bw 773Hz", Command{Kind: CmdSetBandwidth, Bandwidth: accel.Bandwidth773Hz}},
		{"acc set avg number 32", Command{Kind: CmdSetAveraging, Depth: 32}},
		{"acc set click det on", Command{Kind: CmdSetClick, Enabled: true}},
		{"acc set click det off", Command{Kind: CmdSetClick}},
		{"acc set fall det ON", Command{Kind: CmdSetFall, Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		line     string
		expected error
	}{
		{"hello", ErrUnknownCommand},
		{"acc", ErrUnknownCommand},
		{"acc get", ErrUnknownCommand},
		{"acc get rate", ErrUnknownCommand},
		{"acc set", ErrUnknownCommand},
		{"acc set range", ErrUnknownCommand},
		{"acc set gain 2", ErrUnknownCommand},
		{"gyro set range 2g", ErrUnknownCommand},
		{"help me", ErrUnknownCommand},
		{"acc set range 3g", accmon.ErrInvalidConfigValue},
		{"acc set rate 30Hz", accmon.ErrInvalidConfigValue},
		{"acc set bw 100Hz", accmon.ErrInvalidConfigValue},
		{"acc set avg number many", accmon.ErrInvalidConfigValue},
		{"acc set click det maybe", accmon.ErrInvalidConfigValue},
		{strings.Repeat("x", MaxLineLength+1), ErrCommandTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseCommand(tt.line)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestHelpFitsConsoleLine(t *testing.T) {
	for _, line := range helpText {
		assert.LessOrEqual(t, len(line), MaxLineLength, line)
	}
}
