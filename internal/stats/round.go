package stats

import (
	"math"
	"strconv"
)

// Round rounds x to the given number of decimal places. Ties are decided
// on the exact binary value of x and go to the even digit, so 6.25 rounds
// to 6.2 while 2.675 (stored just below) rounds to 2.67. NaN and
// infinities are returned unchanged.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}
