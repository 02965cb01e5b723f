/*
store.go - Persistence interfaces for calculations and categories

PURPOSE:
  Defines the boundary between the engine and the database. The engine only
  creates records; nothing updates or deletes a stored calculation.

KEY INTERFACES:
  CalculationStore: Input/result pairs, linked 1:1, retrievable by calc id
  CategoryStore:    Benefit categories synchronized from product rules

ATOMICITY:
  SaveCalculation writes the input and the result together. Either both
  rows exist or neither does.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - deposit/store/memory.go: In-memory for tests and dev

SEE ALSO:
  - calculator.go: The only writer of calculation records
  - categories.go: The only writer of category records
*/
package deposit

import "context"

// CalculationStore persists calculation history.
type CalculationStore interface {
	// SaveCalculation stores an input and its result and returns the
	// generated identifiers. The ID fields of the arguments are ignored.
	SaveCalculation(ctx context.Context, in InputRecord, out ResultRecord) (calcID, resultID int64, err error)

	// GetCalculation returns the records for a calc id, or nil records if
	// the id does not exist.
	GetCalculation(ctx context.Context, calcID int64) (*InputRecord, *ResultRecord, error)

	// ListCalculations returns the most recent calculations, newest first.
	ListCalculations(ctx context.Context, limit int) ([]CalculationRecord, error)
}

// CalculationRecord is a stored input/result pair.
type CalculationRecord struct {
	Input  InputRecord
	Result ResultRecord
}

// CategoryStore persists benefit categories keyed by category code.
type CategoryStore interface {
	// UpsertCategory inserts or updates the category with the same code and
	// reports whether a new row was created.
	UpsertCategory(ctx context.Context, c Category) (created bool, err error)

	// ListCategories returns all categories ordered by code.
	ListCategories(ctx context.Context) ([]Category, error)
}
