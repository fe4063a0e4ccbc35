package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ablizer/ablizer/internal/store"
	"github.com/ablizer/ablizer/internal/testutil"
)

func TestOpen(t *testing.T) {
	s := testutil.SetupTestStore(t)

	if s == nil {
		t.Fatal("expected non-nil store")
	}
	if err := s.DB().Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestCreateTest(t *testing.T) {
	s := testutil.SetupTestStore(t)

	ctx := context.Background()
	test, err := s.CreateTest(ctx, "hero", "Homepage headline", "CTR")
	if err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	if test.Name != "hero" {
		t.Errorf("got Name %s, want hero", test.Name)
	}
	if test.Metric != "CTR" {
		t.Errorf("got Metric %s, want CTR", test.Metric)
	}
	if test.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestCreateTest_Duplicate(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	_, err := s.CreateTest(ctx, "hero", "", "")
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetTest(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "Homepage headline", "CTR"); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	test, err := s.GetTest(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get test: %v", err)
	}
	if test.Description != "Homepage headline" {
		t.Errorf("got Description %q, want 'Homepage headline'", test.Description)
	}
	if test.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestGetTest_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.GetTest(context.Background(), "nonexistent")
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListTests(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"hero", "cta", "pricing"} {
		if _, err := s.CreateTest(ctx, name, "", ""); err != nil {
			t.Fatalf("failed to create test %s: %v", name, err)
		}
	}

	tests, err := s.ListTests(ctx)
	if err != nil {
		t.Fatalf("failed to list tests: %v", err)
	}
	if len(tests) != 3 {
		t.Fatalf("got %d tests, want 3", len(tests))
	}
	// Newest first
	if tests[0].Name != "pricing" {
		t.Errorf("got first test %s, want pricing", tests[0].Name)
	}
}

func TestUpdateTest(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "old", "CTR"); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}
	if err := s.UpdateTest(ctx, "hero", "new", "Signups"); err != nil {
		t.Fatalf("failed to update test: %v", err)
	}

	test, _ := s.GetTest(ctx, "hero")
	if test.Description != "new" || test.Metric != "Signups" {
		t.Errorf("update not applied: %+v", test)
	}

	if err := s.UpdateTest(ctx, "nonexistent", "", ""); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetVariants(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	variants, err := s.SetVariants(ctx, "hero", []store.VariantCounts{
		{Impressions: 1000, Conversions: 50},
		{Impressions: 3, Conversions: 1},
	})
	if err != nil {
		t.Fatalf("failed to set variants: %v", err)
	}

	if variants[0].Name != "Variant A" || variants[1].Name != "Variant B" {
		t.Errorf("unexpected names: %s, %s", variants[0].Name, variants[1].Name)
	}
	// Stored rate is a display percentage
	if variants[0].ConversionRate != 5 {
		t.Errorf("got rate %f, want 5", variants[0].ConversionRate)
	}
	if variants[1].ConversionRate != 33.33 {
		t.Errorf("got rate %f, want 33.33", variants[1].ConversionRate)
	}

	// Replacing keeps only the new rows
	if _, err := s.SetVariants(ctx, "hero", []store.VariantCounts{
		{Impressions: 2000, Conversions: 100},
		{Impressions: 2000, Conversions: 160},
	}); err != nil {
		t.Fatalf("failed to replace variants: %v", err)
	}

	got, err := s.GetVariants(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get variants: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d variants, want 2", len(got))
	}
	if got[0].Position != 0 || got[0].Impressions != 2000 || got[1].Conversions != 160 {
		t.Errorf("unexpected variants: %+v", got)
	}
}

func TestSetVariants_TestNotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.SetVariants(context.Background(), "nonexistent", []store.VariantCounts{{Impressions: 1}})
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetVariants_Empty(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	variants, err := s.GetVariants(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get variants: %v", err)
	}
	if len(variants) != 0 {
		t.Errorf("expected no variants, got %d", len(variants))
	}
}

func TestSaveAndLatestReport(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	if _, err := s.LatestReport(ctx, "hero"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound before any report, got %v", err)
	}

	first := &store.Report{Summary: "Test was not significant.", Method: "fisher_exact", PValue: 0.08}
	if err := s.SaveReport(ctx, "hero", first); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	if first.ID == 0 || first.TestID == 0 {
		t.Errorf("expected ids to be set, got %+v", first)
	}

	second := &store.Report{
		Summary:         "Test was significant.",
		Method:          "two_proportion_z_test",
		PValue:          0.0065,
		Significant:     true,
		IncreasePercent: 60,
		Payload:         []byte(`{"method":"two_proportion_z_test"}`),
	}
	if err := s.SaveReport(ctx, "hero", second); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	latest, err := s.LatestReport(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get report: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("got report %d, want %d", latest.ID, second.ID)
	}
	if !latest.Significant || latest.IncreasePercent != 60 {
		t.Errorf("unexpected report: %+v", latest)
	}
	if string(latest.Payload) != `{"method":"two_proportion_z_test"}` {
		t.Errorf("unexpected payload: %s", latest.Payload)
	}
}

func TestSaveReport_TestNotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	err := s.SaveReport(context.Background(), "nonexistent", &store.Report{})
	if err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordReport(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	rep := &store.Report{Summary: "Test was significant.", Method: "two_proportion_z_test", PValue: 0.01, Significant: true}
	variants, err := s.RecordReport(ctx, "hero", []store.VariantCounts{
		{Impressions: 1000, Conversions: 50},
		{Impressions: 1000, Conversions: 80},
	}, rep)
	if err != nil {
		t.Fatalf("failed to record report: %v", err)
	}
	if len(variants) != 2 || variants[1].Name != "B" {
		t.Errorf("unexpected variants: %+v", variants)
	}
	if rep.ID == 0 || rep.TestID != variants[0].TestID {
		t.Errorf("expected report ids to be set, got %+v", rep)
	}

	stored, err := s.GetVariants(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get variants: %v", err)
	}
	if len(stored) != 2 || stored[1].Conversions != 80 {
		t.Errorf("unexpected stored variants: %+v", stored)
	}

	latest, err := s.LatestReport(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get report: %v", err)
	}
	if latest.ID != rep.ID {
		t.Errorf("got report %d, want %d", latest.ID, rep.ID)
	}
}

func TestRecordReport_RollsBackOnFailure(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}
	if _, err := s.SetVariants(ctx, "hero", []store.VariantCounts{
		{Impressions: 10, Conversions: 1},
		{Impressions: 10, Conversions: 2},
	}); err != nil {
		t.Fatalf("failed to set variants: %v", err)
	}

	// The report insert fails after the variants were replaced inside the
	// transaction; the old variants must survive.
	if _, err := s.DB().Exec(`DROP TABLE reports`); err != nil {
		t.Fatalf("failed to drop reports: %v", err)
	}

	_, err := s.RecordReport(ctx, "hero", []store.VariantCounts{
		{Impressions: 1000, Conversions: 50},
		{Impressions: 1000, Conversions: 80},
	}, &store.Report{Summary: "x", Method: "two_proportion_z_test"})
	if err == nil {
		t.Fatal("expected error when the report cannot be written")
	}

	stored, err := s.GetVariants(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get variants: %v", err)
	}
	if len(stored) != 2 || stored[0].Impressions != 10 || stored[1].Conversions != 2 {
		t.Errorf("expected the previous variants to be kept, got %+v", stored)
	}
}

func TestRecordReport_TestNotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.RecordReport(context.Background(), "nonexistent", []store.VariantCounts{{Impressions: 1}}, &store.Report{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTest(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateTest(ctx, "hero", "", ""); err != nil {
		t.Fatalf("failed to create test: %v", err)
	}
	if _, err := s.SetVariants(ctx, "hero", []store.VariantCounts{{Impressions: 10}, {Impressions: 10}}); err != nil {
		t.Fatalf("failed to set variants: %v", err)
	}
	if err := s.SaveReport(ctx, "hero", &store.Report{Summary: "x", Method: "fisher_exact", PValue: 1}); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	if err := s.DeleteTest(ctx, "hero"); err != nil {
		t.Fatalf("failed to delete test: %v", err)
	}

	if _, err := s.GetTest(ctx, "hero"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var remaining int
	if err := s.DB().QueryRow(`SELECT (SELECT COUNT(*) FROM variants) + (SELECT COUNT(*) FROM reports)`).Scan(&remaining); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected child rows to be deleted, %d remain", remaining)
	}

	if err := s.DeleteTest(ctx, "hero"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestTotals(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("failed to get totals: %v", err)
	}
	if *totals != (store.Totals{}) {
		t.Errorf("expected zero totals, got %+v", totals)
	}

	for _, name := range []string{"hero", "cta"} {
		if _, err := s.CreateTest(ctx, name, "", ""); err != nil {
			t.Fatalf("failed to create test: %v", err)
		}
		if _, err := s.SetVariants(ctx, name, []store.VariantCounts{{Impressions: 100, Conversions: 5}, {Impressions: 200, Conversions: 7}}); err != nil {
			t.Fatalf("failed to set variants: %v", err)
		}
	}

	totals, err = s.Totals(ctx)
	if err != nil {
		t.Fatalf("failed to get totals: %v", err)
	}
	want := store.Totals{Tests: 2, Impressions: 600, Conversions: 24}
	if *totals != want {
		t.Errorf("got %+v, want %+v", *totals, want)
	}
}

func TestVariantName(t *testing.T) {
	if got := store.VariantName(0); got != "Variant A" {
		t.Errorf("got %s, want Variant A", got)
	}
	if got := store.VariantName(25); got != "Variant Z" {
		t.Errorf("got %s, want Variant Z", got)
	}
	if got := store.VariantName(26); got != "Variant 27" {
		t.Errorf("got %s, want Variant 27", got)
	}
}
