package hexstat

import (
	"fmt"
	"math"
	"strings"
)

// Stat is a summary statistic over the valid pixels of a cell.
type Stat string

// Supported statistics.
const (
	StatMean Stat = "mean"
	StatSum  Stat = "sum"
)

// ParseStat validates a statistic name.
func ParseStat(s string) (Stat, error) {
	switch Stat(strings.ToLower(strings.TrimSpace(s))) {
	case StatMean:
		return StatMean, nil
	case StatSum:
		return StatSum, nil
	default:
		return "", fmt.Errorf("%w: unknown statistic %q (want mean or sum)", ErrConfiguration, s)
	}
}

func (s Stat) String() string {
	return string(s)
}

// validPixels returns the pixels that carry a measurement. With a nodata
// sentinel, pixels equal to it are dropped; NaN is always dropped.
func validPixels(data []float64, nodata float64, hasNodata bool) []float64 {
	valid := make([]float64, 0, len(data))
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if hasNodata && v == nodata {
			continue
		}
		valid = append(valid, v)
	}
	return valid
}

// compute applies s to values. ok is false when values is empty.
func (s Stat) compute(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	switch s {
	case StatSum:
		return sum, true
	case StatMean:
		return sum / float64(len(values)), true
	default:
		return 0, false
	}
}
