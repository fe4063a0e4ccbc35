package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// fisherRelTolerance absorbs floating point noise when comparing table
// probabilities against the observed one.
const fisherRelTolerance = 1e-7

// fisherExact returns the two-sided p-value of Fisher's exact test for the
// table [[a, b], [c, d]]: the total probability of every table with the
// same margins that is no more likely than the observed one.
func fisherExact(a, b, c, d int) float64 {
	// Row order does not change the answer; fixing it makes the summation
	// order, and therefore the float result, independent of variant order.
	if c < a || (c == a && d < b) {
		a, b, c, d = c, d, a, b
	}

	row1 := a + b
	row2 := c + d
	col1 := a + c
	n := row1 + row2

	lo := max(0, col1-row2)
	hi := min(row1, col1)

	logTotal := combin.LogGeneralizedBinomial(float64(n), float64(col1))
	logPMF := func(x int) float64 {
		return combin.LogGeneralizedBinomial(float64(row1), float64(x)) +
			combin.LogGeneralizedBinomial(float64(row2), float64(col1-x)) -
			logTotal
	}

	cutoff := logPMF(a) + math.Log1p(fisherRelTolerance)

	var p float64
	for x := lo; x <= hi; x++ {
		if lp := logPMF(x); lp <= cutoff {
			p += math.Exp(lp)
		}
	}

	return clampUnit(p)
}
