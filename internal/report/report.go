// Package report shapes significance results into the record consumed by
// the store, the text and JSON writers, and the external summary layer.
package report

import (
	"fmt"
	"strings"

	"github.com/ablizer/ablizer/internal/outcome"
	"github.com/ablizer/ablizer/internal/stats"
)

// Meta describes the test a report belongs to.
type Meta struct {
	Name        string
	Description string
	Metric      string
}

// Report is the flattened view of one comparison. Field names are part of
// the external contract; ci_95 and standard_deviation are only present for
// the z-test.
type Report struct {
	TestName          string        `json:"test_name"`
	Metric            string        `json:"metric,omitempty"`
	Method            stats.Method  `json:"method"`
	ConvRateA         float64       `json:"conv_rate_a"`
	ConvRateB         float64       `json:"conv_rate_b"`
	Difference        float64       `json:"difference"`
	PValue            float64       `json:"p_value"`
	Significant       bool          `json:"significant"`
	Alpha             float64       `json:"alpha"`
	SampleSizeA       int           `json:"sample_size_a"`
	SampleSizeB       int           `json:"sample_size_b"`
	ConversionsA      int           `json:"conversions_a"`
	ConversionsB      int           `json:"conversions_b"`
	CI95              *[2]float64   `json:"ci_95,omitempty"`
	StandardDeviation *float64      `json:"standard_deviation,omitempty"`
	IncreasePercent   float64       `json:"increase_percent"`
	Outcome           outcome.Label `json:"outcome"`
	Summary           string        `json:"summary"`
}

// Compose builds a report from a calculator result. The result is not
// modified and nothing in the report aliases it.
func Compose(meta Meta, r *stats.Result) Report {
	rep := Report{
		TestName:        meta.Name,
		Metric:          meta.Metric,
		Method:          r.Method,
		ConvRateA:       r.ConvRateA,
		ConvRateB:       r.ConvRateB,
		Difference:      r.Difference,
		PValue:          r.PValue,
		Significant:     r.Significant,
		Alpha:           r.Alpha,
		SampleSizeA:     r.A.Impressions,
		SampleSizeB:     r.B.Impressions,
		ConversionsA:    r.A.Conversions,
		ConversionsB:    r.B.Conversions,
		IncreasePercent: RelativeUpliftPercent(r.ConvRateA, r.ConvRateB),
		Outcome:         outcome.Classify(r, 2),
		Summary:         Summary(r),
	}

	if r.CI95 != nil {
		rep.CI95 = &[2]float64{r.CI95.Low, r.CI95.High}
	}
	if r.ZStatistic != nil {
		z := *r.ZStatistic
		rep.StandardDeviation = &z
	}

	return rep
}

// RelativeUpliftPercent returns the relative change from rateA to rateB in
// percent, rounded to two decimals. It returns 0 when rateA is 0, so
// callers that need to tell "infinite uplift" apart must check rateA.
func RelativeUpliftPercent(rateA, rateB float64) float64 {
	if rateA == 0 {
		return 0
	}
	return stats.Round((rateB-rateA)/rateA*100, 2)
}

// Summary is the one-line verdict stored with a report.
func Summary(r *stats.Result) string {
	if r.Significant {
		return "Test was significant."
	}
	return "Test was not significant."
}

// Brief renders the plain-text description of a test handed to the
// summary layer. Rates are shown as percentages.
func Brief(meta Meta, rep Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Test Name: %s\n", meta.Name)
	fmt.Fprintf(&b, "Test Description: %s\n", meta.Description)
	fmt.Fprintf(&b, "Metric: %s\n\n", meta.Metric)

	writeVariant := func(name string, impressions, conversions int, rate float64) {
		fmt.Fprintf(&b, "%s:\n", name)
		fmt.Fprintf(&b, "Impressions: %d\n", impressions)
		fmt.Fprintf(&b, "Conversions: %d\n", conversions)
		fmt.Fprintf(&b, "Conversion Rate: %.2f%%\n\n", rate*100)
	}
	writeVariant("Variant A", rep.SampleSizeA, rep.ConversionsA, rep.ConvRateA)
	writeVariant("Variant B", rep.SampleSizeB, rep.ConversionsB, rep.ConvRateB)

	fmt.Fprintf(&b, "Report:\n")
	fmt.Fprintf(&b, "Method: %s\n", rep.Method)
	fmt.Fprintf(&b, "P-value: %.6f\n", rep.PValue)
	fmt.Fprintf(&b, "Significant: %t\n", rep.Significant)
	if rep.CI95 != nil {
		fmt.Fprintf(&b, "Confidence Interval (95%%): [%.6f, %.6f]\n", rep.CI95[0], rep.CI95[1])
	} else {
		fmt.Fprintf(&b, "Confidence Interval (95%%): N/A\n")
	}
	fmt.Fprintf(&b, "Relative Change: %.2f%%\n", rep.IncreasePercent)
	fmt.Fprintf(&b, "%s\n", rep.Summary)

	return b.String()
}
