// Package analysis joins stored tests with the calculator: it recomputes
// reports from stored counts and records new counts with their report.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ablizer/ablizer/internal/outcome"
	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/stats"
	"github.com/ablizer/ablizer/internal/store"
)

// Analysis is a stored test with its variants and, when at least two
// variants exist, the comparison of the first two.
type Analysis struct {
	Test     *store.Test
	Variants []store.Variant
	Result   *stats.Result
}

func (a Analysis) Meta() report.Meta {
	return MetaOf(a.Test)
}

// Label is the verdict for the test; tests without a result are Other.
func (a Analysis) Label() outcome.Label {
	return outcome.Classify(a.Result, len(a.Variants))
}

// Report composes the report. ok is false when there is no result yet.
func (a Analysis) Report() (rep report.Report, ok bool) {
	if a.Result == nil {
		return report.Report{}, false
	}
	return report.Compose(a.Meta(), a.Result), true
}

func MetaOf(t *store.Test) report.Meta {
	return report.Meta{Name: t.Name, Description: t.Description, Metric: t.Metric}
}

// Analyzer runs the calculator against a store at a fixed alpha.
// Cache is optional.
type Analyzer struct {
	Store store.Store
	Alpha float64
	Cache *Cache
}

func (z *Analyzer) compute(a, b stats.Sample) (*stats.Result, error) {
	return z.Cache.Compute(a, b, z.Alpha)
}

// Analyze recomputes the comparison from stored counts. Stored counts the
// calculator rejects are returned as an *stats.InvalidInputError together
// with the partial analysis.
func (z *Analyzer) Analyze(ctx context.Context, test *store.Test) (Analysis, error) {
	a := Analysis{Test: test}

	variants, err := z.Store.GetVariants(ctx, test.Name)
	if err != nil {
		return a, fmt.Errorf("failed to get variants: %w", err)
	}
	a.Variants = variants

	if len(variants) < 2 {
		return a, nil
	}

	r, err := z.compute(SampleOf(variants[0]), SampleOf(variants[1]))
	if err != nil {
		return a, err
	}
	a.Result = r
	return a, nil
}

// Record validates the counts, then replaces the stored variants and saves
// the composed report together. Nothing is written when the calculator
// rejects the counts or the store fails.
func (z *Analyzer) Record(ctx context.Context, test *store.Test, a, b stats.Sample) (report.Report, error) {
	result, err := z.compute(a, b)
	if err != nil {
		return report.Report{}, err
	}

	rep := report.Compose(MetaOf(test), result)

	payload, err := json.Marshal(rep)
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to encode report: %w", err)
	}

	counts := []store.VariantCounts{
		{Impressions: a.Impressions, Conversions: a.Conversions},
		{Impressions: b.Impressions, Conversions: b.Conversions},
	}
	_, err = z.Store.RecordReport(ctx, test.Name, counts, &store.Report{
		Summary:         rep.Summary,
		Method:          string(rep.Method),
		PValue:          rep.PValue,
		Significant:     rep.Significant,
		IncreasePercent: rep.IncreasePercent,
		Payload:         payload,
	})
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to record report: %w", err)
	}

	return rep, nil
}

// All analyzes every stored test, newest first. Tests whose counts the
// calculator rejects are returned without a result; their errors are
// passed to onError when it is non-nil.
func (z *Analyzer) All(ctx context.Context, onError func(*store.Test, error)) ([]Analysis, error) {
	tests, err := z.Store.ListTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	out := make([]Analysis, 0, len(tests))
	for _, test := range tests {
		a, err := z.Analyze(ctx, test)
		if err != nil && onError != nil {
			onError(test, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Reports composes the reports of the analyses that have a result.
func Reports(analyses []Analysis) []report.Report {
	reports := make([]report.Report, 0, len(analyses))
	for _, a := range analyses {
		if rep, ok := a.Report(); ok {
			reports = append(reports, rep)
		}
	}
	return reports
}

// Ratios tallies the verdicts of every analysis, including tests that
// have no result yet.
func Ratios(analyses []Analysis) outcome.Ratios {
	labels := make([]outcome.Label, len(analyses))
	for i, a := range analyses {
		labels[i] = a.Label()
	}
	return outcome.Aggregate(labels)
}

func SampleOf(v store.Variant) stats.Sample {
	return stats.Sample{Impressions: v.Impressions, Conversions: v.Conversions}
}
