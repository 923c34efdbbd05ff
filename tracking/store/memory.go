// Package store provides an in-memory TableAccessor.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Mgdadali/249-subsite/tracking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds tables as raw cell rows, header first.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][][]string

	// failWith, when set, is returned by every call. Tests use it to
	// simulate an unreachable backend.
	failWith error
}

// NewMemory creates a store with every tracking table present and holding
// only its canonical header.
func NewMemory() *Memory {
	m := &Memory{tables: make(map[string][][]string)}
	for _, t := range tracking.Tables() {
		m.tables[t] = [][]string{append([]string(nil), tracking.Headers[t]...)}
	}
	return m
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// SetHeader replaces the header row of table, as a hand edit of the
// spreadsheet would.
func (m *Memory) SetHeader(table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(table)
	if err != nil {
		return err
	}
	rows[0] = append([]string(nil), header...)
	return nil
}

func (m *Memory) table(name string) ([][]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	rows, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	return rows, nil
}

func (m *Memory) ReadAll(ctx context.Context, table string) (tracking.Snapshot, error) {
	cells, err := m.ReadCells(ctx, table)
	if err != nil {
		return tracking.Snapshot{}, err
	}
	return tracking.SnapshotFromCells(table, cells), nil
}

func (m *Memory) ReadCells(_ context.Context, table string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *Memory) AppendRow(_ context.Context, table string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(table)
	if err != nil {
		return err
	}
	m.tables[table] = append(rows, append([]string(nil), values...))
	return nil
}

func (m *Memory) UpdateCell(_ context.Context, table string, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(table)
	if err != nil {
		return err
	}
	if err := tracking.CheckRowRange(row, row, len(rows)); err != nil {
		return err
	}
	if col < 1 {
		return fmt.Errorf("%w: column %d", tracking.ErrInvalidRow, col)
	}
	r := rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	rows[row-1] = r
	return nil
}

func (m *Memory) DeleteRow(ctx context.Context, table string, row int) error {
	return m.DeleteRows(ctx, table, row, row)
}

func (m *Memory) DeleteRows(_ context.Context, table string, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.table(table)
	if err != nil {
		return err
	}
	if err := tracking.CheckRowRange(from, to, len(rows)); err != nil {
		return err
	}
	m.tables[table] = append(rows[:from-1], rows[to:]...)
	return nil
}

// ErrUnavailable is a convenience error for Fail.
var ErrUnavailable = errors.New("memory store: unavailable")
