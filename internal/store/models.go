package store

import "time"

type Test struct {
	ID          int64
	Name        string
	Description string
	Metric      string // e.g. "CTR"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant holds the recorded counts for one arm of a test.
// ConversionRate is a display value in percent (0-100), rounded to two
// decimals; it is never fed back into the calculator.
type Variant struct {
	ID             int64
	TestID         int64
	Position       int // 0 = A (control), 1 = B
	Name           string
	Impressions    int
	Conversions    int
	ConversionRate float64
}

type VariantCounts struct {
	Impressions int
	Conversions int
}

type Report struct {
	ID              int64
	TestID          int64
	Summary         string
	Method          string
	PValue          float64
	Significant     bool
	IncreasePercent float64
	Payload         []byte // JSON encoding of the composed report
	CreatedAt       time.Time
}

// Totals aggregates raw counts over every stored test.
type Totals struct {
	Tests       int
	Impressions int
	Conversions int
}
