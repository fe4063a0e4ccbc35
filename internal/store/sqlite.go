package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ablizer/ablizer/internal/stats"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS tests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    metric TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_tests_name ON tests(name);

CREATE TABLE IF NOT EXISTS variants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    impressions INTEGER NOT NULL,
    conversions INTEGER NOT NULL,
    conversion_rate REAL NOT NULL,
    FOREIGN KEY (test_id) REFERENCES tests(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_test_position ON variants(test_id, position);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_id INTEGER NOT NULL,
    summary TEXT NOT NULL,
    method TEXT NOT NULL,
    p_value REAL NOT NULL,
    significant INTEGER NOT NULL,
    increase_percent REAL,
    payload TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (test_id) REFERENCES tests(id)
);

CREATE INDEX IF NOT EXISTS idx_reports_test ON reports(test_id, created_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTest(ctx context.Context, name, description, metric string) (*Test, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tests (name, description, metric, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		name, description, metric, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("test %q: %w", name, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to insert test: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &Test{
		ID:          id,
		Name:        name,
		Description: description,
		Metric:      metric,
		CreatedAt:   time.Unix(now, 0),
		UpdatedAt:   time.Unix(now, 0),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (*Test, error) {
	var test Test
	var createdAt, updatedAt int64
	if err := row.Scan(&test.ID, &test.Name, &test.Description, &test.Metric, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	test.CreatedAt = time.Unix(createdAt, 0)
	test.UpdatedAt = time.Unix(updatedAt, 0)
	return &test, nil
}

func (s *SQLiteStore) GetTest(ctx context.Context, name string) (*Test, error) {
	test, err := scanTest(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, metric, created_at, updated_at
		 FROM tests WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *SQLiteStore) ListTests(ctx context.Context) ([]*Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, metric, created_at, updated_at
		 FROM tests ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

func (s *SQLiteStore) UpdateTest(ctx context.Context, name, description, metric string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET description = ?, metric = ?, updated_at = ? WHERE name = ?`,
		description, metric, time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStore) DeleteTest(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children first
	for _, table := range []string{"reports", "variants"} {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE test_id = (SELECT id FROM tests WHERE name = ?)`, name)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

// SetVariants replaces the variants of a test with the given counts, in
// order: the first entry is variant A.
func (s *SQLiteStore) SetVariants(ctx context.Context, testName string, counts []VariantCounts) ([]Variant, error) {
	test, err := s.GetTest(ctx, testName)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	variants, err := replaceVariants(ctx, tx, test.ID, counts, time.Now().Unix())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit variants: %w", err)
	}

	return variants, nil
}

// RecordReport replaces the variants of a test and appends a report in a
// single transaction. Either both are written or neither is.
func (s *SQLiteStore) RecordReport(ctx context.Context, testName string, counts []VariantCounts, report *Report) ([]Variant, error) {
	test, err := s.GetTest(ctx, testName)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	variants, err := replaceVariants(ctx, tx, test.ID, counts, now)
	if err != nil {
		return nil, err
	}
	id, err := insertReport(ctx, tx, test.ID, report, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}

	report.ID = id
	report.TestID = test.ID
	report.CreatedAt = time.Unix(now, 0)
	return variants, nil
}

func replaceVariants(ctx context.Context, tx *sql.Tx, testID int64, counts []VariantCounts, now int64) ([]Variant, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE test_id = ?`, testID); err != nil {
		return nil, fmt.Errorf("failed to clear variants: %w", err)
	}

	variants := make([]Variant, len(counts))
	for i, c := range counts {
		v := Variant{
			TestID:         testID,
			Position:       i,
			Name:           VariantName(i),
			Impressions:    c.Impressions,
			Conversions:    c.Conversions,
			ConversionRate: displayRate(c),
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO variants (test_id, position, name, impressions, conversions, conversion_rate)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			v.TestID, v.Position, v.Name, v.Impressions, v.Conversions, v.ConversionRate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert variant: %w", err)
		}
		if v.ID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
		variants[i] = v
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tests SET updated_at = ? WHERE id = ?`, now, testID); err != nil {
		return nil, fmt.Errorf("failed to touch test: %w", err)
	}

	return variants, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertReport(ctx context.Context, db execer, testID int64, report *Report, now int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO reports (test_id, summary, method, p_value, significant, increase_percent, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		testID, report.Summary, report.Method, report.PValue, report.Significant,
		report.IncreasePercent, nullableString(report.Payload), now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetVariants(ctx context.Context, testName string) ([]Variant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.test_id, v.position, v.name, v.impressions, v.conversions, v.conversion_rate
		FROM variants v
		JOIN tests t ON t.id = v.test_id
		WHERE t.name = ?
		ORDER BY v.position
	`, testName)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.TestID, &v.Position, &v.Name, &v.Impressions, &v.Conversions, &v.ConversionRate); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	return variants, rows.Err()
}

func (s *SQLiteStore) SaveReport(ctx context.Context, testName string, report *Report) error {
	test, err := s.GetTest(ctx, testName)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	id, err := insertReport(ctx, s.db, test.ID, report, now)
	if err != nil {
		return err
	}

	report.ID = id
	report.TestID = test.ID
	report.CreatedAt = time.Unix(now, 0)
	return nil
}

func (s *SQLiteStore) LatestReport(ctx context.Context, testName string) (*Report, error) {
	var r Report
	var payload sql.NullString
	var increase sql.NullFloat64
	var createdAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.test_id, r.summary, r.method, r.p_value, r.significant, r.increase_percent, r.payload, r.created_at
		FROM reports r
		JOIN tests t ON t.id = r.test_id
		WHERE t.name = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT 1
	`, testName).Scan(&r.ID, &r.TestID, &r.Summary, &r.Method, &r.PValue, &r.Significant, &increase, &payload, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	r.IncreasePercent = increase.Float64
	if payload.Valid {
		r.Payload = []byte(payload.String)
	}
	r.CreatedAt = time.Unix(createdAt, 0)

	return &r, nil
}

func (s *SQLiteStore) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&t.Tests); err != nil {
		return nil, fmt.Errorf("failed to count tests: %w", err)
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(impressions), 0), COALESCE(SUM(conversions), 0) FROM variants`,
	).Scan(&t.Impressions, &t.Conversions)
	if err != nil {
		return nil, fmt.Errorf("failed to sum variants: %w", err)
	}
	return &t, nil
}

// DB returns the underlying database connection
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// VariantName returns the display name for the variant at position i:
// "Variant A", "Variant B", ...
func VariantName(i int) string {
	if i >= 0 && i < 26 {
		return "Variant " + string(rune('A'+i))
	}
	return fmt.Sprintf("Variant %d", i+1)
}

func displayRate(c VariantCounts) float64 {
	rate := stats.Sample{Impressions: c.Impressions, Conversions: c.Conversions}.Rate()
	return stats.Round(rate*100, 2)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
