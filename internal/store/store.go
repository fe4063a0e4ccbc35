package store

import "context"

// Store defines the interface for test storage operations
type Store interface {
	// Test operations
	CreateTest(ctx context.Context, name, description, metric string) (*Test, error)
	GetTest(ctx context.Context, name string) (*Test, error)
	ListTests(ctx context.Context) ([]*Test, error)
	UpdateTest(ctx context.Context, name, description, metric string) error
	DeleteTest(ctx context.Context, name string) error

	// Variant operations
	SetVariants(ctx context.Context, testName string, counts []VariantCounts) ([]Variant, error)
	GetVariants(ctx context.Context, testName string) ([]Variant, error)

	// Report operations
	SaveReport(ctx context.Context, testName string, report *Report) error
	RecordReport(ctx context.Context, testName string, counts []VariantCounts, report *Report) ([]Variant, error)
	LatestReport(ctx context.Context, testName string) (*Report, error)

	Totals(ctx context.Context) (*Totals, error)

	// Lifecycle
	Close() error
}
