package accel

import "fmt"

// LSM303D 7-bit addresses, selected by the SA0 pin.
const (
	AddrSA0High = 0x1D
	AddrSA0Low  = 0x1E
)

const whoAmIValue = 0x49

// autoIncrement in the register address makes the device step through
// consecutive registers.
const autoIncrement = 0x80

// register map
const (
	regWhoAmI      = 0x0F
	regCtrl0       = 0x1F
	regCtrl1       = 0x20
	regCtrl2       = 0x21
	regCtrl3       = 0x22
	regCtrl4       = 0x23
	regStatusA     = 0x27
	regOutXLA      = 0x28
	regOutXHA      = 0x29
	regOutYLA      = 0x2A
	regOutYHA      = 0x2B
	regOutZLA      = 0x2C
	regOutZHA      = 0x2D
	regIGCfg1      = 0x30
	regIGSrc1      = 0x31
	regIGThs1      = 0x32
	regIGDur1      = 0x33
	regClickCfg    = 0x38
	regClickSrc    = 0x39
	regClickThs    = 0x3A
	regTimeLimit   = 0x3B
	regTimeLatency = 0x3C
	regTimeWindow  = 0x3D

	registerMapSize = 0x40
)

// CTRL0
const (
	ctrl0Boot    = 0x80
	ctrl0HPClick = 0x04
	ctrl0HPIS1   = 0x02
	ctrl0HPIS2   = 0x01
)

// CTRL1 axis enables, the rate occupies AODR[3:0] (bits 7:4)
const (
	ctrl1AZEN = 0x04
	ctrl1AYEN = 0x02
	ctrl1AXEN = 0x01
	ctrl1Axes = ctrl1AZEN | ctrl1AYEN | ctrl1AXEN
)

// CTRL3 routes to INT1, CTRL4 routes to INT2
const (
	ctrl3Int1DrdyA = 0x04
	ctrl4Int2Click = 0x80
	ctrl4Int2IG1   = 0x40
	ctrl4Int2IG2   = 0x20
)

const statusAZYXADA = 0x08

// CLICK_CFG single click enables and CLICK_SRC flags
const (
	clickCfgXS     = 0x01
	clickCfgYS     = 0x04
	clickCfgZS     = 0x10
	clickCfgSingle = clickCfgXS | clickCfgYS | clickCfgZS

	clickSrcX      = 0x01
	clickSrcY      = 0x02
	clickSrcZ      = 0x04
	clickSrcSign   = 0x08
	clickSrcSingle = 0x10
	clickSrcDouble = 0x20
	clickSrcIA     = 0x40
	clickSrcAxes   = clickSrcX | clickSrcY | clickSrcZ
)

// click timing, in ODR periods and threshold LSBs
const (
	defaultClickThreshold = 0x30
	defaultClickLimit     = 0x08
	defaultClickLatency   = 0x10
	defaultClickWindow    = 0x40
)

// IG_CFG1 free-fall: AND of low events on all axes
const (
	igCfgAOI       = 0x80
	igCfgZLIE      = 0x10
	igCfgYLIE      = 0x04
	igCfgXLIE      = 0x01
	igCfgFreeFall  = igCfgAOI | igCfgZLIE | igCfgYLIE | igCfgXLIE
	igSrcIA        = 0x40
	freeFallThs    = 0x16
	freeFallDur    = 0x03
	accXYZDataSize = 6
)

// FullScale is the CTRL2 AFS[2:0] encoding (bits 5:3).
type FullScale byte

const (
	FullScale2G  FullScale = 0x0 << 3
	FullScale4G  FullScale = 0x1 << 3
	FullScale6G  FullScale = 0x2 << 3
	FullScale8G  FullScale = 0x3 << 3
	FullScale16G FullScale = 0x4 << 3
)

const fullScaleMask = 0x7 << 3

var fullScales = []FullScale{FullScale2G, FullScale4G, FullScale6G, FullScale8G, FullScale16G}

// G returns the range in g.
func (f FullScale) G() int {
	switch f {
	case FullScale2G:
		return 2
	case FullScale4G:
		return 4
	case FullScale6G:
		return 6
	case FullScale8G:
		return 8
	case FullScale16G:
		return 16
	default:
		return 0
	}
}

func (f FullScale) String() string {
	return fmt.Sprintf("%dg", f.G())
}

// FullScaleFromG returns the encoding of a range given in g.
func FullScaleFromG(g int) (FullScale, bool) {
	for _, f := range fullScales {
		if f.G() == g {
			return f, true
		}
	}
	return 0, false
}

// Rate is the CTRL1 AODR[3:0] encoding (bits 7:4).
type Rate byte

const (
	Rate3Hz125 Rate = 0x1 << 4
	Rate6Hz25  Rate = 0x2 << 4
	Rate12Hz5  Rate = 0x3 << 4
	Rate25Hz   Rate = 0x4 << 4
	Rate50Hz   Rate = 0x5 << 4
	Rate100Hz  Rate = 0x6 << 4
	Rate200Hz  Rate = 0x7 << 4
	Rate400Hz  Rate = 0x8 << 4
	Rate800Hz  Rate = 0x9 << 4
	Rate1600Hz Rate = 0xA << 4
)

var rateMilliHz = map[Rate]int{
	Rate3Hz125: 3125,
	Rate6Hz25:  6250,
	Rate12Hz5:  12500,
	Rate25Hz:   25000,
	Rate50Hz:   50000,
	Rate100Hz:  100000,
	Rate200Hz:  200000,
	Rate400Hz:  400000,
	Rate800Hz:  800000,
	Rate1600Hz: 1600000,
}

// MilliHz returns the output data rate in mHz.
func (r Rate) MilliHz() int {
	return rateMilliHz[r]
}

func (r Rate) String() string {
	mhz := r.MilliHz()
	if mhz%1000 == 0 {
		return fmt.Sprintf("%dHz", mhz/1000)
	}
	frac := fmt.Sprintf("%03d", mhz%1000)
	for frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	return fmt.Sprintf("%d.%sHz", mhz/1000, frac)
}

// RateFromMilliHz returns the encoding of a rate given in mHz.
func RateFromMilliHz(mhz int) (Rate, bool) {
	for r, v := range rateMilliHz {
		if v == mhz {
			return r, true
		}
	}
	return 0, false
}

// Bandwidth is the CTRL2 ABW[1:0] anti-alias filter encoding (bits 7:6).
type Bandwidth byte

const (
	Bandwidth773Hz Bandwidth = 0x0 << 6
	Bandwidth194Hz Bandwidth = 0x1 << 6
	Bandwidth362Hz Bandwidth = 0x2 << 6
	Bandwidth50Hz  Bandwidth = 0x3 << 6
)

var bandwidths = []Bandwidth{Bandwidth773Hz, Bandwidth194Hz, Bandwidth362Hz, Bandwidth50Hz}

func (b Bandwidth) Hz() int {
	switch b {
	case Bandwidth773Hz:
		return 773
	case Bandwidth194Hz:
		return 194
	case Bandwidth362Hz:
		return 362
	case Bandwidth50Hz:
		return 50
	default:
		return 0
	}
}

func (b Bandwidth) String() string {
	return fmt.Sprintf("%dHz", b.Hz())
}

func BandwidthFromHz(hz int) (Bandwidth, bool) {
	for _, b := range bandwidths {
		if b.Hz() == hz {
			return b, true
		}
	}
	return 0, false
}
