/*
table.go - Storage interface for the tracking tables

PURPOSE:
  Defines the contract between the tracking service and whatever holds the
  four tables. The production backend is a Google spreadsheet; a SQLite file
  and an in-memory store implement the same contract.

INDEXING:
  All row and column indices are 1-based. Row 1 is the header and is never
  written through UpdateCell or removed through DeleteRow(s).

CONSISTENCY:
  There is no transaction support. A read followed by a write on the same
  table is not atomic, and concurrent writers can race. Deleting a row
  shifts every later row up by one, so callers deleting several rows go
  bottom-up.

ERRORS:
  Backend failures are wrapped with ErrStorageUnavailable (see
  WrapStorage). Nothing is retried.

IMPLEMENTATIONS:
  - store/sheets: Google Sheets v4
  - store/sqlite: SQLite file
  - tracking/store: in-memory, for tests

SEE ALSO:
  - schema.go: table and column names
  - service.go: callers
*/
package tracking

import (
	"context"
	"errors"
	"fmt"
)

// TableAccessor reads and writes rows of a named table.
type TableAccessor interface {
	// ReadAll returns the header and every data row as column mappings.
	ReadAll(ctx context.Context, table string) (Snapshot, error)

	// ReadCells returns raw rows, header included, for index arithmetic.
	ReadCells(ctx context.Context, table string) ([][]string, error)

	// AppendRow adds a row after the last row.
	AppendRow(ctx context.Context, table string, values []string) error

	// UpdateCell sets one cell.
	UpdateCell(ctx context.Context, table string, row, col int, value string) error

	// DeleteRow removes one row; later rows shift up.
	DeleteRow(ctx context.Context, table string, row int) error

	// DeleteRows removes the inclusive range [from, to].
	DeleteRows(ctx context.Context, table string, from, to int) error
}

// WrapStorage wraps a backend error so it matches ErrStorageUnavailable.
// Returns nil when err is nil. Errors that already carry a tracking kind
// (e.g. ErrInvalidRow) are returned with context only.
func WrapStorage(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidRow) {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	return &StorageError{Op: op, Table: table, Err: err}
}

// CheckRowRange validates a 1-based inclusive data-row range against the
// number of rows in the table (header included).
func CheckRowRange(from, to, total int) error {
	if from <= HeaderRow || to < from || to > total {
		return fmt.Errorf("%w: rows %d-%d of %d", ErrInvalidRow, from, to, total)
	}
	return nil
}
