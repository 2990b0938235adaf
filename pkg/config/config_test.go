package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/accmon"
	"github.com/mklimuk/accmon/accel"
)

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	ac, err := cfg.Accelerometer()
	require.NoError(t, err)
	assert.Equal(t, accel.DefaultConfig(), ac)
	assert.Equal(t, 1, cfg.Sensor.Averaging)
	assert.Equal(t, 3, cfg.Queues.Events)
	assert.Equal(t, 4, cfg.Queues.Output)
	assert.Equal(t, uint8(0x21), cfg.Interrupts.ExpanderAddress)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accmon.yaml")
	content := `
bus:
  adapter: mcp2221
  address: 0x1e
  busy_timeout: 20ms
interrupts:
  driver: periph
  data: GPIO17
sensor:
  range: 2g
  rate: 100Hz
  averaging: 16
  click_detection: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, AdapterMCP2221, cfg.Bus.Adapter)
	assert.Equal(t, uint8(0x1E), cfg.Bus.Address)
	assert.Equal(t, 20*time.Millisecond, cfg.Bus.BusyTimeout)
	assert.Equal(t, 400_000, cfg.Bus.SpeedHz, "default kept")
	assert.Equal(t, InterruptsPeriph, cfg.Interrupts.Driver)
	assert.Equal(t, map[int]string{1: "GPIO17", 2: "27"}, cfg.Interrupts.Names())

	ac, err := cfg.Accelerometer()
	require.NoError(t, err)
	assert.Equal(t, accel.FullScale2G, ac.FullScale)
	assert.Equal(t, accel.Rate100Hz, ac.Rate)
	assert.Equal(t, accel.Bandwidth50Hz, ac.Bandwidth)
	assert.True(t, ac.ClickDetection)
	assert.False(t, ac.FallDetection)
	assert.Equal(t, 16, cfg.Sensor.Averaging)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"adapter", "bus: {adapter: spi}"},
		{"address", "bus: {address: 0x80}"},
		{"driver", "interrupts: {driver: poll}"},
		{"expander driver typo", "interrupts: {driver: mcp23018}"},
		{"range", "sensor: {range: 3g}"},
		{"rate", "sensor: {rate: 30Hz}"},
		{"bandwidth", "sensor: {bandwidth: 100}"},
		{"averaging low", "sensor: {averaging: 0}"},
		{"averaging high", "sensor: {averaging: 1000}"},
		{"busy timeout", "bus: {busy_timeout: -1s}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default().Decode(strings.NewReader(tt.content))
			assert.ErrorIs(t, err, accmon.ErrInvalidConfigValue)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Decode(strings.NewReader("")))
	assert.Equal(t, Default(), cfg)
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Bus.BusyTimeout = 150 * time.Millisecond
	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	assert.Contains(t, buf.String(), "busy_timeout: 150ms")

	decoded := Default()
	decoded.Bus.BusyTimeout = 0
	require.NoError(t, decoded.Decode(&buf))
	assert.Equal(t, cfg, decoded)
}

func TestInterrupts_Offsets(t *testing.T) {
	offsets, err := Interrupts{Data: "17", Detection: "27"}.Offsets()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 17, 2: 27}, offsets)

	_, err = Interrupts{Data: "GPIO17"}.Offsets()
	assert.ErrorIs(t, err, accmon.ErrInvalidConfigValue)
}
