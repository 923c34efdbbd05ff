package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mgdadali/249-subsite/store/sqlite"
	"github.com/Mgdadali/249-subsite/tracking"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func stepCells(t *testing.T, store *sqlite.Store) [][]string {
	cells, err := store.ReadCells(context.Background(), tracking.TableSteps)
	require.NoError(t, err)
	return cells
}

// =============================================================================
// ACCESSOR CONTRACT
// =============================================================================

func TestNew_SeedsHeaders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, table := range tracking.Tables() {
		snap, err := store.ReadAll(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, tracking.Headers[table], snap.Header, table)
		assert.Empty(t, snap.Rows, table)
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.AppendRow(ctx, tracking.TableSteps, []string{"Payment"}))
	require.NoError(t, store.Close())

	store, err = sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, [][]string{{"StepName"}, {"Payment"}}, stepCells(t, store))
}

func TestAppendAndReadAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, tracking.TableClients, []string{"AB12CD34", "Amina", "Visa"}))
	require.NoError(t, store.AppendRow(ctx, tracking.TableClients, []string{"9F00E1A7", "Omar"}))

	snap, err := store.ReadAll(ctx, tracking.TableClients)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, 2, snap.Rows[0].Index)
	assert.Equal(t, "Amina", snap.Rows[0].Get(tracking.ColName))
	assert.Equal(t, 3, snap.Rows[1].Index)
	assert.Equal(t, "", snap.Rows[1].Get(tracking.ColService))
}

func TestUpdateCell(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, tracking.TableChecklist, []string{"FALSE", "Payment", "AB12CD34"}))

	require.NoError(t, store.UpdateCell(ctx, tracking.TableChecklist, 2, 1, "TRUE"))

	cells, err := store.ReadCells(ctx, tracking.TableChecklist)
	require.NoError(t, err)
	assert.Equal(t, []string{"TRUE", "Payment", "AB12CD34"}, cells[1])
}

func TestUpdateCell_PadsShortRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, tracking.TableClients, []string{"AB12CD34"}))

	require.NoError(t, store.UpdateCell(ctx, tracking.TableClients, 2, 3, "Visa"))

	cells, err := store.ReadCells(ctx, tracking.TableClients)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB12CD34", "", "Visa"}, cells[1])
}

func TestUpdateCell_RejectsHeaderAndMissingRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.UpdateCell(ctx, tracking.TableSteps, 1, 1, "x"), tracking.ErrInvalidRow)
	assert.ErrorIs(t, store.UpdateCell(ctx, tracking.TableSteps, 5, 1, "x"), tracking.ErrInvalidRow)
}

func TestDeleteRows_ShiftsLaterRowsUp(t *testing.T) {
	// GIVEN: steps A..E in rows 2..6
	store := newTestStore(t)
	ctx := context.Background()
	for _, s := range []string{"A", "B", "C", "D", "E"} {
		require.NoError(t, store.AppendRow(ctx, tracking.TableSteps, []string{s}))
	}

	// WHEN: rows 3-4 (B, C) are deleted
	require.NoError(t, store.DeleteRows(ctx, tracking.TableSteps, 3, 4))

	// THEN: D and E move up, and the next append lands after E
	assert.Equal(t, [][]string{{"StepName"}, {"A"}, {"D"}, {"E"}}, stepCells(t, store))
	require.NoError(t, store.AppendRow(ctx, tracking.TableSteps, []string{"F"}))
	assert.Equal(t, [][]string{{"StepName"}, {"A"}, {"D"}, {"E"}, {"F"}}, stepCells(t, store))

	require.NoError(t, store.DeleteRow(ctx, tracking.TableSteps, 2))
	assert.Equal(t, [][]string{{"StepName"}, {"D"}, {"E"}, {"F"}}, stepCells(t, store))
}

func TestDeleteRows_InvalidRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, tracking.TableSteps, []string{"A"}))

	assert.ErrorIs(t, store.DeleteRow(ctx, tracking.TableSteps, 1), tracking.ErrInvalidRow)
	assert.ErrorIs(t, store.DeleteRows(ctx, tracking.TableSteps, 2, 3), tracking.ErrInvalidRow)
	assert.ErrorIs(t, store.DeleteRows(ctx, tracking.TableSteps, 3, 2), tracking.ErrInvalidRow)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, tracking.TableSteps, []string{"A"}))

	require.NoError(t, store.Reset(ctx))
	assert.Equal(t, [][]string{{"StepName"}}, stepCells(t, store))
}

// =============================================================================
// SERVICE ON SQLITE
// =============================================================================

func TestService_DeleteStepCascadeOnSQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	svc := tracking.NewService(store, tracking.NewMemoryCache(time.Minute), zap.NewNop())
	require.NoError(t, tracking.LoadScenario(ctx, store, "demo", "admin", "pw"))

	require.NoError(t, svc.DeleteStep(ctx, "Documents received"))

	status, err := svc.Track(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, []tracking.ChecklistItem{
		{Name: "Application filed", Done: true},
		{Name: "Payment", Done: false},
	}, status.Checklist)

	status, err = svc.Track(ctx, "9F00E1A7")
	require.NoError(t, err)
	assert.Empty(t, status.Checklist)
}
