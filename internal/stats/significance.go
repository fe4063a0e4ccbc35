package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Method identifies the hypothesis test used to compare two variants.
type Method string

const (
	MethodZTest       Method = "two_proportion_z_test"
	MethodFisherExact Method = "fisher_exact"
)

const (
	// DefaultAlpha is the significance level used when none is given.
	DefaultAlpha = 0.05

	// minCellCount is the smallest 2x2 cell the normal approximation accepts.
	// Tables with any cell below it go to Fisher's exact test.
	minCellCount = 5

	// z975 is the two-sided 95% critical value of the standard normal.
	z975 = 1.959963985
)

// Sample holds the raw counts recorded for one variant.
type Sample struct {
	Impressions int
	Conversions int
}

// Rate returns the conversion rate as a fraction in [0, 1].
// A sample without impressions has a rate of 0.
func (s Sample) Rate() float64 {
	if s.Impressions == 0 {
		return 0
	}
	return float64(s.Conversions) / float64(s.Impressions)
}

// Interval is a closed range on the difference of two rates.
type Interval struct {
	Low  float64
	High float64
}

// Result is the outcome of comparing variant B against variant A.
// CI95 and ZStatistic are only set for the z-test.
type Result struct {
	Method      Method
	A           Sample
	B           Sample
	ConvRateA   float64
	ConvRateB   float64
	Difference  float64 // ConvRateB - ConvRateA
	PValue      float64
	Significant bool
	Alpha       float64
	CI95        *Interval
	ZStatistic  *float64
}

type options struct {
	alpha float64
}

// Option configures Compute.
type Option func(*options)

// WithAlpha overrides the significance level. It must lie in (0, 1).
func WithAlpha(alpha float64) Option {
	return func(o *options) {
		o.alpha = alpha
	}
}

// Compute compares two variants and returns the p-value, the observed
// difference in conversion rate and, for large enough samples, a 95%
// confidence interval on that difference.
//
// Fisher's exact test is used whenever any cell of the 2x2 table
// (conversions and non-conversions per variant) is below 5; otherwise the
// pooled two-proportion z-test is used. Invalid counts yield an
// *InvalidInputError.
func Compute(a, b Sample, opts ...Option) (*Result, error) {
	o := options{alpha: DefaultAlpha}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validate(a, b, o.alpha); err != nil {
		return nil, err
	}

	rateA := a.Rate()
	rateB := b.Rate()

	result := &Result{
		A:          a,
		B:          b,
		ConvRateA:  rateA,
		ConvRateB:  rateB,
		Difference: rateB - rateA,
		Alpha:      o.alpha,
	}

	failuresA := a.Impressions - a.Conversions
	failuresB := b.Impressions - b.Conversions

	if min(a.Conversions, failuresA, b.Conversions, failuresB) < minCellCount {
		result.Method = MethodFisherExact
		result.PValue = fisherExact(a.Conversions, failuresA, b.Conversions, failuresB)
	} else {
		z, p, ci := zTest(a, b)
		result.Method = MethodZTest
		result.PValue = p
		result.ZStatistic = &z
		result.CI95 = &ci
	}

	result.Significant = result.PValue < o.alpha

	return result, nil
}

// zTest runs the pooled two-proportion z-test. The interval uses the
// unpooled standard error since it is not computed under the null.
func zTest(a, b Sample) (z, p float64, ci Interval) {
	nA := float64(a.Impressions)
	nB := float64(b.Impressions)
	rateA := a.Rate()
	rateB := b.Rate()
	diff := rateB - rateA

	pooled := float64(a.Conversions+b.Conversions) / float64(a.Impressions+b.Impressions)
	sePooled := math.Sqrt(pooled * (1 - pooled) * (1/nA + 1/nB))

	if sePooled > 0 {
		z = diff / sePooled
		p = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	} else {
		p = 1
	}
	p = clampUnit(p)

	seUnpooled := math.Sqrt(rateA*(1-rateA)/nA + rateB*(1-rateB)/nB)
	ci = Interval{
		Low:  diff - z975*seUnpooled,
		High: diff + z975*seUnpooled,
	}

	return z, p, ci
}

func clampUnit(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
