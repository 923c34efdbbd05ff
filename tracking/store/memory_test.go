package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mgdadali/249-subsite/tracking"
)

func TestMemory_RowsShiftAfterDelete(t *testing.T) {
	// GIVEN: steps A, B, C
	m := NewMemory()
	ctx := context.Background()
	for _, s := range []string{"A", "B", "C"} {
		require.NoError(t, m.AppendRow(ctx, tracking.TableSteps, []string{s}))
	}

	// WHEN: row 3 (B) is deleted
	require.NoError(t, m.DeleteRow(ctx, tracking.TableSteps, 3))

	// THEN: C moves up to row 3
	snap, err := m.ReadAll(ctx, tracking.TableSteps)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, 3, snap.Rows[1].Index)
	assert.Equal(t, "C", snap.Rows[1].Get(tracking.ColStepName))
}

func TestMemory_ReadCellsReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AppendRow(ctx, tracking.TableSteps, []string{"A"}))

	cells, err := m.ReadCells(ctx, tracking.TableSteps)
	require.NoError(t, err)
	cells[1][0] = "mutated"

	again, err := m.ReadCells(ctx, tracking.TableSteps)
	require.NoError(t, err)
	assert.Equal(t, "A", again[1][0])
}

func TestMemory_InvalidRows(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AppendRow(ctx, tracking.TableClients, []string{"AB12CD34"}))

	assert.ErrorIs(t, m.UpdateCell(ctx, tracking.TableClients, 1, 1, "x"), tracking.ErrInvalidRow)
	assert.ErrorIs(t, m.UpdateCell(ctx, tracking.TableClients, 3, 1, "x"), tracking.ErrInvalidRow)
	assert.ErrorIs(t, m.UpdateCell(ctx, tracking.TableClients, 2, 0, "x"), tracking.ErrInvalidRow)
	assert.ErrorIs(t, m.DeleteRows(ctx, tracking.TableClients, 2, 3), tracking.ErrInvalidRow)

	require.NoError(t, m.UpdateCell(ctx, tracking.TableClients, 2, 3, "Visa"))
	cells, err := m.ReadCells(ctx, tracking.TableClients)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB12CD34", "", "Visa"}, cells[1])
}

func TestMemory_Fail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Fail(ErrUnavailable)
	_, err := m.ReadAll(ctx, tracking.TableSteps)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, m.AppendRow(ctx, tracking.TableSteps, []string{"A"}), ErrUnavailable)

	m.Fail(nil)
	_, err = m.ReadAll(ctx, tracking.TableSteps)
	assert.NoError(t, err)
}
