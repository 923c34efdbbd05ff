/*
Package sqlite provides a SQLite-backed implementation of tracking.TableAccessor.

PURPOSE:
  Emulates the tracking spreadsheet in a local SQLite file so the service
  runs without Google credentials (development, demos, tests). Rows keep
  spreadsheet semantics: 1-based positions, header in row 1, and deleting
  a row shifts every later row up.

KEY TABLES:
  sheet_rows: one row per spreadsheet row
    table_name  tab name (Clients, Steps, Checklist, Admins)
    position    1-based row number, unique per table
    cells_json  JSON array of cell strings

SHIFTING DELETES:
  DeleteRows removes [from, to] and moves later rows up by the range size
  inside one transaction. Positions are first negated and then restored to
  avoid transient primary key collisions.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so that
  ":memory:" databases are shared by every call.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/tracker.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := tracking.NewService(store, cache, logger)

MIGRATION:
  Schema is auto-migrated on New(), and every tracking table is seeded
  with its canonical header if it has no row 1.

SEE ALSO:
  - tracking/table.go: Interface definition
  - store/sheets: Google Sheets implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Mgdadali/249-subsite/tracking"
)

// Store implements tracking.TableAccessor using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema and seeds headers.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheet_rows (
		table_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		cells_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (table_name, position)
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	for _, table := range tracking.Tables() {
		header, err := json.Marshal(tracking.Headers[table])
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO sheet_rows (table_name, position, cells_json, updated_at)
			VALUES (?, ?, ?, ?)
		`, table, tracking.HeaderRow, string(header), now())
		if err != nil {
			return fmt.Errorf("seed header %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// ReadAll returns the table as a snapshot.
func (s *Store) ReadAll(ctx context.Context, table string) (tracking.Snapshot, error) {
	cells, err := s.ReadCells(ctx, table)
	if err != nil {
		return tracking.Snapshot{}, err
	}
	return tracking.SnapshotFromCells(table, cells), nil
}

// ReadCells returns every row of table in position order, header first.
func (s *Store) ReadCells(ctx context.Context, table string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, cells_json FROM sheet_rows
		WHERE table_name = ?
		ORDER BY position ASC
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var (
			position int
			raw      string
		)
		if err := rows.Scan(&position, &raw); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", table, position, err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// =============================================================================
// WRITES
// =============================================================================

// AppendRow adds values after the last row of table.
func (s *Store) AppendRow(ctx context.Context, table string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sheet_rows (table_name, position, cells_json, updated_at)
		SELECT ?, COALESCE(MAX(position), 0) + 1, ?, ?
		FROM sheet_rows WHERE table_name = ?
	`, table, string(raw), now(), table)
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// UpdateCell sets the 1-based (row, col) cell of table.
func (s *Store) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row <= tracking.HeaderRow || col < 1 {
		return fmt.Errorf("%w: cell %d,%d", tracking.ErrInvalidRow, row, col)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `
			SELECT cells_json FROM sheet_rows WHERE table_name = ? AND position = ?
		`, table, row).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: row %d of %s", tracking.ErrInvalidRow, row, table)
		}
		if err != nil {
			return err
		}

		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return err
		}
		for len(cells) < col {
			cells = append(cells, "")
		}
		cells[col-1] = value

		updated, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE sheet_rows SET cells_json = ?, updated_at = ?
			WHERE table_name = ? AND position = ?
		`, string(updated), now(), table, row)
		return err
	})
}

// DeleteRow removes one row; later rows shift up.
func (s *Store) DeleteRow(ctx context.Context, table string, row int) error {
	return s.DeleteRows(ctx, table, row, row)
}

// DeleteRows removes rows [from, to]; later rows shift up.
func (s *Store) DeleteRows(ctx context.Context, table string, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var total int
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position), 0) FROM sheet_rows WHERE table_name = ?
		`, table).Scan(&total)
		if err != nil {
			return err
		}
		if err := tracking.CheckRowRange(from, to, total); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM sheet_rows WHERE table_name = ? AND position BETWEEN ? AND ?
		`, table, from, to); err != nil {
			return err
		}

		shift := to - from + 1
		if _, err := tx.ExecContext(ctx, `
			UPDATE sheet_rows SET position = -(position - ?)
			WHERE table_name = ? AND position > ?
		`, shift, table, to); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE sheet_rows SET position = -position
			WHERE table_name = ? AND position < 0
		`, table)
		return err
	})
}

// Reset removes every data row, keeping headers.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM sheet_rows WHERE position > ?`, tracking.HeaderRow)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
