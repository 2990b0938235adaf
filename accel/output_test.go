package accel

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeRaw_LittleEndian(t *testing.T) {
	raw := DecodeRaw([]byte{0x34, 0x12, 0x00, 0x80, 0xFF, 0x7F})
	assert.Equal(t, int16(0x1234), raw.X)
	assert.Equal(t, int16(math.MinInt16), raw.Y)
	assert.Equal(t, int16(math.MaxInt16), raw.Z)
}

func TestToMilliG(t *testing.T) {
	tests := []struct {
		code     int32
		fs       FullScale
		expected int32
	}{
		{math.MaxInt16, FullScale2G, 2000},
		{math.MaxInt16, FullScale8G, 8000},
		{math.MaxInt16, FullScale16G, 16000},
		{math.MinInt16, FullScale2G, -2000},
		{16384, FullScale4G, 2000},
		{0, FullScale6G, 0},
		{-1, FullScale16G, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d at %s", tt.code, tt.fs), func(t *testing.T) {
			assert.Equal(t, tt.expected, ToMilliG(tt.code, tt.fs))
		})
	}
}

func TestAccelerometerSample_Physical(t *testing.T) {
	s := AccelerometerSample{Raw: RawSample{X: math.MaxInt16, Y: 0, Z: -16384}, FullScale: FullScale8G}
	assert.Equal(t, PhysicalSample{X: 8000, Y: 0, Z: -4000}, s.Physical())
	assert.Equal(t, "X:8000mg Y:0mg Z:-4000mg", s.Physical().String())
}

func TestClickDetected(t *testing.T) {
	c := ClickDetected{Source: clickSrcIA | clickSrcSingle | clickSrcSign | clickSrcX | clickSrcZ}
	assert.Equal(t, "XZ", c.Axes())
	assert.True(t, c.Negative())
	assert.False(t, c.Double())
}

func TestSettingEncodings(t *testing.T) {
	for _, g := range []int{2, 4, 6, 8, 16} {
		fs, ok := FullScaleFromG(g)
		assert.True(t, ok)
		assert.Equal(t, g, fs.G())
	}
	_, ok := FullScaleFromG(3)
	assert.False(t, ok)

	assert.Equal(t, "3.125Hz", Rate3Hz125.String())
	assert.Equal(t, "6.25Hz", Rate6Hz25.String())
	assert.Equal(t, "12.5Hz", Rate12Hz5.String())
	assert.Equal(t, "1600Hz", Rate1600Hz.String())
	_, ok = RateFromMilliHz(3000)
	assert.False(t, ok)

	bw, ok := BandwidthFromHz(194)
	assert.True(t, ok)
	assert.Equal(t, Bandwidth194Hz, bw)
	assert.Equal(t, "194Hz", bw.String())
	_, ok = BandwidthFromHz(100)
	assert.False(t, ok)
}
