package timeseries

import (
	"errors"
	"fmt"
	"math"
)

type Alignment string

const (
	AlignTrailing Alignment = "trailing" // window ends on the labeled day
	AlignLeading  Alignment = "leading"  // window starts on the labeled day
	AlignCentered Alignment = "centered" // window straddles the labeled day
)

var (
	ErrInvalidAlignment = errors.New("rolling alignment must be trailing, leading or centered")
	ErrInvalidRollDays  = errors.New("rolling window must be at least 1 day")
)

// RollingMean replaces each value with the mean of a window-day window of raw
// values, per station. A window that runs off either end of a station's
// series, or that contains any missing day, yields NaN; there is no
// partial-window averaging. A 1-day window is the identity. With centered
// alignment and an even window the extra day falls on the trailing side.
func RollingMean(days []Day, window int, align Alignment) ([]Day, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRollDays, window)
	}
	before, after, err := windowOffsets(window, align)
	if err != nil {
		return nil, err
	}

	out := make([]Day, len(days))
	copy(out, days)

	for lo := 0; lo < len(days); {
		hi := lo
		for hi < len(days) && days[hi].StationID == days[lo].StationID {
			hi++
		}
		rollStation(days[lo:hi], out[lo:hi], before, after)
		lo = hi
	}
	return out, nil
}

func windowOffsets(window int, align Alignment) (before, after int, err error) {
	switch align {
	case AlignTrailing:
		return window - 1, 0, nil
	case AlignLeading:
		return 0, window - 1, nil
	case AlignCentered:
		// even windows put the extra day on the trailing side
		return window / 2, (window - 1) / 2, nil
	default:
		return 0, 0, fmt.Errorf("%w: got %q", ErrInvalidAlignment, align)
	}
}

func rollStation(in, out []Day, before, after int) {
	for i := range in {
		lo, hi := i-before, i+after
		if lo < 0 || hi >= len(in) {
			out[i].Value = math.NaN()
			continue
		}
		sum := 0.0
		ok := true
		for j := lo; j <= hi; j++ {
			if in[j].Missing() {
				ok = false
				break
			}
			sum += in[j].Value
		}
		if !ok {
			out[i].Value = math.NaN()
			continue
		}
		out[i].Value = sum / float64(before+after+1)
	}
}
