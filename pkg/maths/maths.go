// Package maths provides numeric conversion helpers.
package maths

import "math"

// RoundFloat64ToInt rounds v to the nearest int, mapping NaN and the
// infinities to zero.
func RoundFloat64ToInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int(math.Round(v))
}

// RoundFloat64ToInt64 rounds v to the nearest int64, mapping NaN and the
// infinities to zero.
func RoundFloat64ToInt64(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int64(math.Round(v))
}
