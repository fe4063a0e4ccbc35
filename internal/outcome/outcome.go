// Package outcome turns significance results into business verdicts and
// summarises verdicts across many tests.
package outcome

import (
	"github.com/ablizer/ablizer/internal/stats"
)

// Label is the verdict for a single test.
type Label string

const (
	Winning Label = "winning"
	Losing  Label = "losing"
	Other   Label = "other"
)

// Classify returns the verdict for a test comparing variant B against A.
//
// Tests without a result or with fewer than two variants are Other, as are
// non-significant results. A significant result where B does not beat A,
// ties included, is Losing.
func Classify(r *stats.Result, variantCount int) Label {
	if r == nil || variantCount < 2 {
		return Other
	}
	if !r.Significant {
		return Other
	}
	if r.ConvRateB > r.ConvRateA {
		return Winning
	}
	return Losing
}

// Ratios is the distribution of verdicts over a set of tests.
// Percentages are rounded independently to one decimal and may not sum
// to exactly 100.
type Ratios struct {
	Winning        int     `json:"winning"`
	Losing         int     `json:"losing"`
	Other          int     `json:"other"`
	WinningPercent float64 `json:"winning_percent"`
	LosingPercent  float64 `json:"losing_percent"`
	OtherPercent   float64 `json:"other_percent"`
}

// Total returns the number of tests counted.
func (r Ratios) Total() int {
	return r.Winning + r.Losing + r.Other
}

// Aggregate counts the labels and computes their percentage shares.
// An empty input yields all zeros. Unknown labels are ignored.
func Aggregate(labels []Label) Ratios {
	var r Ratios
	for _, l := range labels {
		switch l {
		case Winning:
			r.Winning++
		case Losing:
			r.Losing++
		case Other:
			r.Other++
		}
	}

	total := r.Total()
	if total == 0 {
		return r
	}

	r.WinningPercent = percent(r.Winning, total)
	r.LosingPercent = percent(r.Losing, total)
	r.OtherPercent = percent(r.Other, total)
	return r
}

func percent(count, total int) float64 {
	return stats.Round(float64(count)/float64(total)*100, 1)
}
