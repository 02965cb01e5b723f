/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the deposit engine with one
  SQLite database. In production, the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  deposit.CalculationStore: Calculation input/result history
  deposit.CategoryStore:    Benefit categories synchronized from rules
  ratecache.EntryStore:     Cached product base rates

APPEND-ONLY ENFORCEMENT:
  Calculation history is append-only:
  - No UPDATE statements on calculation_inputs / calculation_results
  - No DELETE statements outside Reset
  - An input and its result are written in one SQL transaction

KEY TABLES:
  calculation_inputs:  Normalized requests
  calculation_results: Formatted outcomes, 1:1 with inputs (input_id UNIQUE)
  rate_cache:          One base rate per product code
  categories:          Benefit categories keyed by code

DECIMALS:
  Money and rates are stored as TEXT in decimal notation so that no value
  passes through a float on the way in or out.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/deposits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  calc := deposit.NewCalculator(provider, ratecache.New(provider, store), store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - deposit/store.go: Calculation and category interfaces
  - ratecache/cache.go: EntryStore interface
  - deposit/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ratecache"
)

const dateLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ deposit.CalculationStore = (*Store)(nil)
	_ deposit.CategoryStore    = (*Store)(nil)
	_ ratecache.EntryStore     = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Calculation inputs (append-only)
	CREATE TABLE IF NOT EXISTS calculation_inputs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency_code TEXT NOT NULL,
		principal TEXT NOT NULL,
		tenure_value INTEGER NOT NULL,
		tenure_unit TEXT NOT NULL,
		interest_type TEXT NOT NULL,
		compounding_frequency TEXT,
		category1 TEXT,
		category2 TEXT,
		cumulative INTEGER NOT NULL,
		payout_frequency TEXT,
		product_code TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Calculation results, exactly one per input
	CREATE TABLE IF NOT EXISTS calculation_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input_id INTEGER NOT NULL UNIQUE REFERENCES calculation_inputs(id),
		maturity_value TEXT NOT NULL,
		maturity_date TEXT NOT NULL,
		apy TEXT NOT NULL,
		effective_rate TEXT NOT NULL,
		payout_frequency TEXT,
		payout_amount TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculation_inputs_created
		ON calculation_inputs(created_at DESC);

	-- Base rate cache
	CREATE TABLE IF NOT EXISTS rate_cache (
		product_code TEXT PRIMARY KEY,
		base_rate TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	-- Benefit categories
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		additional_percentage TEXT NOT NULL,
		product_code TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALCULATION STORE (deposit.CalculationStore interface)
// =============================================================================

// SaveCalculation writes the input and result in one transaction.
func (s *Store) SaveCalculation(ctx context.Context, in deposit.InputRecord, out deposit.ResultRecord) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	req := in.Request
	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO calculation_inputs
		(currency_code, principal, tenure_value, tenure_unit, interest_type, compounding_frequency,
		 category1, category2, cumulative, payout_frequency, product_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.CurrencyCode,
		req.Principal.String(),
		req.TenureValue,
		string(req.TenureUnit),
		string(req.InterestType),
		nullString(string(req.CompoundingFrequency)),
		nullString(req.Category1),
		nullString(req.Category2),
		req.Cumulative,
		nullString(string(req.PayoutFrequency)),
		req.ProductCode,
		formatTime(in.CreatedAt),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert calculation input: %w", err)
	}
	calcID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	var payoutFreq sql.NullString
	if out.PayoutFrequency != nil {
		payoutFreq = nullString(string(*out.PayoutFrequency))
	}
	var payoutAmount sql.NullString
	if out.PayoutAmount != nil {
		payoutAmount = nullString(out.PayoutAmount.String())
	}

	res, err = sqlTx.ExecContext(ctx, `
		INSERT INTO calculation_results
		(input_id, maturity_value, maturity_date, apy, effective_rate, payout_frequency, payout_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		calcID,
		out.MaturityValue.String(),
		out.MaturityDate.Format(dateLayout),
		out.APY.String(),
		out.EffectiveRate.String(),
		payoutFreq,
		payoutAmount,
		formatTime(out.CreatedAt),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert calculation result: %w", err)
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit calculation: %w", err)
	}
	return calcID, resultID, nil
}

const calculationColumns = `
	i.id, i.currency_code, i.principal, i.tenure_value, i.tenure_unit, i.interest_type,
	i.compounding_frequency, i.category1, i.category2, i.cumulative, i.payout_frequency,
	i.product_code, i.created_at,
	r.id, r.maturity_value, r.maturity_date, r.apy, r.effective_rate,
	r.payout_frequency, r.payout_amount, r.created_at
`

// GetCalculation returns the records for calcID, or nils if it does not exist.
func (s *Store) GetCalculation(ctx context.Context, calcID int64) (*deposit.InputRecord, *deposit.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+calculationColumns+`
		FROM calculation_inputs i
		JOIN calculation_results r ON r.input_id = i.id
		WHERE i.id = ?
	`, calcID)

	rec, err := scanCalculation(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &rec.Input, &rec.Result, nil
}

// ListCalculations returns the most recent calculations, newest first.
// limit <= 0 returns everything.
func (s *Store) ListCalculations(ctx context.Context, limit int) ([]deposit.CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+calculationColumns+`
		FROM calculation_inputs i
		JOIN calculation_results r ON r.input_id = i.id
		ORDER BY i.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []deposit.CalculationRecord
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row scanner) (deposit.CalculationRecord, error) {
	var (
		rec                                       deposit.CalculationRecord
		principal, tenureUnit, interestType       string
		compounding, cat1, cat2, inPayoutFreq     sql.NullString
		inCreatedAt                               string
		maturityValue, maturityDate, apy, effRate string
		outPayoutFreq, payoutAmount               sql.NullString
		outCreatedAt                              string
	)
	in := &rec.Input
	out := &rec.Result

	err := row.Scan(
		&in.ID, &in.Request.CurrencyCode, &principal, &in.Request.TenureValue, &tenureUnit, &interestType,
		&compounding, &cat1, &cat2, &in.Request.Cumulative, &inPayoutFreq,
		&in.Request.ProductCode, &inCreatedAt,
		&out.ID, &maturityValue, &maturityDate, &apy, &effRate,
		&outPayoutFreq, &payoutAmount, &outCreatedAt,
	)
	if err != nil {
		return rec, err
	}

	var p columnParser
	in.Request.Principal = p.parseDecimal("principal", principal)
	in.Request.TenureUnit = deposit.TenureUnit(tenureUnit)
	in.Request.InterestType = deposit.InterestType(interestType)
	in.Request.CompoundingFrequency = deposit.Frequency(compounding.String)
	in.Request.Category1 = cat1.String
	in.Request.Category2 = cat2.String
	in.Request.PayoutFrequency = deposit.Frequency(inPayoutFreq.String)
	in.CreatedAt = p.parseTime("created_at", time.RFC3339Nano, inCreatedAt)

	out.InputID = in.ID
	out.MaturityValue = p.parseDecimal("maturity_value", maturityValue)
	out.MaturityDate = p.parseTime("maturity_date", dateLayout, maturityDate)
	out.APY = p.parseDecimal("apy", apy)
	out.EffectiveRate = p.parseDecimal("effective_rate", effRate)
	if outPayoutFreq.Valid {
		f := deposit.Frequency(outPayoutFreq.String)
		out.PayoutFrequency = &f
	}
	if payoutAmount.Valid {
		d := p.parseDecimal("payout_amount", payoutAmount.String)
		out.PayoutAmount = &d
	}
	out.CreatedAt = p.parseTime("created_at", time.RFC3339Nano, outCreatedAt)

	if p.err != nil {
		return rec, fmt.Errorf("calculation %d: %w", in.ID, p.err)
	}
	return rec, nil
}

// =============================================================================
// RATE CACHE (ratecache.EntryStore interface)
// =============================================================================

// GetEntry returns the cached rate for a product, or nil.
func (s *Store) GetEntry(ctx context.Context, productCode string) (*ratecache.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rate, updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT base_rate, last_updated FROM rate_cache WHERE product_code = ?",
		productCode,
	).Scan(&rate, &updated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p columnParser
	e := &ratecache.Entry{
		ProductCode: productCode,
		BaseRate:    p.parseDecimal("base_rate", rate),
		LastUpdated: p.parseTime("last_updated", time.RFC3339Nano, updated),
	}
	if p.err != nil {
		return nil, fmt.Errorf("rate cache entry %s: %w", productCode, p.err)
	}
	return e, nil
}

// PutEntry creates or overwrites the cached rate for e.ProductCode.
func (s *Store) PutEntry(ctx context.Context, e ratecache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_cache (product_code, base_rate, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(product_code) DO UPDATE SET
			base_rate = excluded.base_rate,
			last_updated = excluded.last_updated
	`, e.ProductCode, e.BaseRate.String(), formatTime(e.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to store rate cache entry: %w", err)
	}
	return nil
}

// =============================================================================
// CATEGORIES (deposit.CategoryStore interface)
// =============================================================================

// UpsertCategory inserts or updates a category by code.
func (s *Store) UpsertCategory(ctx context.Context, c deposit.Category) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var existing int64
	err = sqlTx.QueryRowContext(ctx, "SELECT id FROM categories WHERE code = ?", c.Code).Scan(&existing)
	created := err == sql.ErrNoRows
	if err != nil && !created {
		return false, err
	}

	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO categories (code, name, additional_percentage, product_code, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			additional_percentage = excluded.additional_percentage,
			product_code = excluded.product_code,
			updated_at = excluded.updated_at
	`, c.Code, c.Name, c.AdditionalPercentage.String(), c.ProductCode, formatTime(updated))
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, fmt.Errorf("category %s: concurrent insert: %w", c.Code, err)
		}
		return false, fmt.Errorf("failed to upsert category: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return false, err
	}
	return created, nil
}

// ListCategories returns all categories ordered by code.
func (s *Store) ListCategories(ctx context.Context) ([]deposit.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, additional_percentage, product_code, updated_at FROM categories ORDER BY code",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []deposit.Category
	for rows.Next() {
		var c deposit.Category
		var pct, updated string
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &pct, &c.ProductCode, &updated); err != nil {
			return nil, err
		}
		var p columnParser
		c.AdditionalPercentage = p.parseDecimal("additional_percentage", pct)
		c.UpdatedAt = p.parseTime("updated_at", time.RFC3339Nano, updated)
		if p.err != nil {
			return nil, fmt.Errorf("category %s: %w", c.Code, p.err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"calculation_results", "calculation_inputs", "rate_cache", "categories"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// columnParser decodes text columns and keeps the first failure.
type columnParser struct {
	err error
}

func (p *columnParser) parseDecimal(column, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", column, err)
	}
	return d
}

func (p *columnParser) parseTime(column, layout, s string) time.Time {
	t, err := time.Parse(layout, s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", column, err)
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
