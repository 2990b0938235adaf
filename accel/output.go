package accel

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// RawSample holds the axis output codes of one 6-byte burst.
type RawSample struct {
	X, Y, Z int16
}

// PhysicalSample holds acceleration in milli-g.
type PhysicalSample struct {
	X, Y, Z int32
}

func (p PhysicalSample) String() string {
	return fmt.Sprintf("X:%dmg Y:%dmg Z:%dmg", p.X, p.Y, p.Z)
}

// DecodeRaw decodes little-endian axis pairs: OUT_X_L, OUT_X_H, OUT_Y_L ...
func DecodeRaw(buf []byte) RawSample {
	return RawSample{
		X: int16(binary.LittleEndian.Uint16(buf[0:2])),
		Y: int16(binary.LittleEndian.Uint16(buf[2:4])),
		Z: int16(binary.LittleEndian.Uint16(buf[4:6])),
	}
}

// ToMilliG scales an output code to milli-g for the given range.
func ToMilliG(code int32, fs FullScale) int32 {
	return int32(int64(code) * int64(fs.G()) * 1000 / math.MaxInt16)
}

// Scale converts raw codes to milli-g.
func (r RawSample) Scale(fs FullScale) PhysicalSample {
	return PhysicalSample{
		X: ToMilliG(int32(r.X), fs),
		Y: ToMilliG(int32(r.Y), fs),
		Z: ToMilliG(int32(r.Z), fs),
	}
}

// Output is a record published by the acquisition state machine: one of
// AccelerometerSample, ClickDetected, FallDetected or AcquisitionFault.
type Output interface {
	isOutput()
}

type AccelerometerSample struct {
	Raw       RawSample
	FullScale FullScale
	At        time.Time
}

// Physical returns the sample in milli-g.
func (s AccelerometerSample) Physical() PhysicalSample {
	return s.Raw.Scale(s.FullScale)
}

// ClickDetected carries the CLICK_SRC content that triggered it.
type ClickDetected struct {
	Source byte
	At     time.Time
}

// Axes returns the axes that detected the click, e.g. "XZ".
func (c ClickDetected) Axes() string {
	var axes string
	if c.Source&clickSrcX != 0 {
		axes += "X"
	}
	if c.Source&clickSrcY != 0 {
		axes += "Y"
	}
	if c.Source&clickSrcZ != 0 {
		axes += "Z"
	}
	return axes
}

func (c ClickDetected) Double() bool {
	return c.Source&clickSrcDouble != 0
}

func (c ClickDetected) Negative() bool {
	return c.Source&clickSrcSign != 0
}

type FallDetected struct {
	Source byte
	At     time.Time
}

// AcquisitionFault reports a bus error that occurred while handling an event.
type AcquisitionFault struct {
	Event Event
	Err   error
}

func (AccelerometerSample) isOutput() {}
func (ClickDetected) isOutput()       {}
func (FallDetected) isOutput()        {}
func (AcquisitionFault) isOutput()    {}
