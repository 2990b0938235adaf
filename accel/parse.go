package accel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mklimuk/accmon"
)

// ParseFullScale accepts "8" or "8g".
func ParseFullScale(s string) (FullScale, error) {
	g, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "g"))
	if err != nil {
		return 0, fmt.Errorf("%w: range %q", accmon.ErrInvalidConfigValue, s)
	}
	fs, ok := FullScaleFromG(g)
	if !ok {
		return 0, fmt.Errorf("%w: range %q", accmon.ErrInvalidConfigValue, s)
	}
	return fs, nil
}

// ParseRate accepts "3.125", "3.125Hz" or "1600Hz".
func ParseRate(s string) (Rate, error) {
	mhz, err := parseMilliHz(s)
	if err != nil {
		return 0, fmt.Errorf("%w: rate %q", accmon.ErrInvalidConfigValue, s)
	}
	rate, ok := RateFromMilliHz(mhz)
	if !ok {
		return 0, fmt.Errorf("%w: rate %q", accmon.ErrInvalidConfigValue, s)
	}
	return rate, nil
}

// ParseBandwidth accepts "50" or "50Hz".
func ParseBandwidth(s string) (Bandwidth, error) {
	hz, err := strconv.Atoi(trimHz(s))
	if err != nil {
		return 0, fmt.Errorf("%w: bandwidth %q", accmon.ErrInvalidConfigValue, s)
	}
	bw, ok := BandwidthFromHz(hz)
	if !ok {
		return 0, fmt.Errorf("%w: bandwidth %q", accmon.ErrInvalidConfigValue, s)
	}
	return bw, nil
}

func trimHz(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(strings.ToLower(s), "hz") {
		return s[:len(s)-2]
	}
	return s
}

// parseMilliHz parses a decimal frequency without going through floats so
// that "3.125" maps exactly to 3125.
func parseMilliHz(s string) (int, error) {
	whole, frac, _ := strings.Cut(trimHz(s), ".")
	if len(frac) > 3 {
		return 0, fmt.Errorf("too many decimals")
	}
	hz, err := strconv.Atoi(whole)
	if err != nil || hz < 0 {
		return 0, fmt.Errorf("invalid frequency %q", s)
	}
	mhz := hz * 1000
	if frac != "" {
		f, err := strconv.Atoi((frac + "00")[:3])
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid frequency %q", s)
		}
		mhz += f
	}
	return mhz, nil
}
