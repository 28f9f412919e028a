// Package util contains misc internal utilities.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Clamp limits x to the closed interval [low, high]
func Clamp(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

// SecsToDuration converts a float of seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}

// DurationToSecs converts a duration to a float of seconds
func DurationToSecs(d time.Duration) float64 {
	return d.Seconds()
}

// FormatFloat prints f in its shortest round-trip form, keeping a trailing
// ".0" on integral values, e.g. 10 -> "10.0", 0.02508 -> "0.02508"
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// FormatValue prints v the way FormatFloat does for floating point values and
// with fmt-like defaults otherwise
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return FormatFloat(t)
	case float32:
		return FormatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Duration:
		return FormatFloat(t.Seconds())
	case time.Time:
		return FormatFloat(float64(t.UnixNano()) / 1e9)
	default:
		return fmt.Sprint(v)
	}
}
