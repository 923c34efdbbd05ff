package sheets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/Mgdadali/249-subsite/store/sheets"
	"github.com/Mgdadali/249-subsite/tracking"
)

// =============================================================================
// FAKE SHEETS API
// =============================================================================

const docID = "doc-1"

// fakeSheets serves the subset of the Sheets v4 REST API the store uses.
type fakeSheets struct {
	mu       sync.Mutex
	tabs     map[string][][]string
	ids      map[string]int64
	metadata int // metadata requests served
}

func newFakeSheets() *fakeSheets {
	f := &fakeSheets{tabs: make(map[string][][]string), ids: make(map[string]int64)}
	for i, t := range tracking.Tables() {
		f.tabs[t] = [][]string{append([]string(nil), tracking.Headers[t]...)}
		f.ids[t] = int64(i) // Clients is sheet 0
	}
	return f
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/"+docID)
	if !ok {
		http.Error(w, "unknown spreadsheet", http.StatusNotFound)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		f.metadata++
		doc := gsheets.Spreadsheet{SpreadsheetId: docID}
		for title, id := range f.ids {
			doc.Sheets = append(doc.Sheets, &gsheets.Sheet{
				Properties: &gsheets.SheetProperties{SheetId: id, Title: title},
			})
		}
		writeJSON(w, doc)

	case rest == ":batchUpdate":
		var req gsheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, q := range req.Requests {
			dr := q.DeleteDimension.Range
			tab := f.titleFor(dr.SheetId)
			rows := f.tabs[tab]
			f.tabs[tab] = append(rows[:dr.StartIndex], rows[dr.EndIndex:]...)
		}
		writeJSON(w, gsheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: docID})

	case strings.HasPrefix(rest, "/values/"):
		rng := strings.TrimPrefix(rest, "/values/")
		if a, ok := strings.CutSuffix(rng, ":append"); ok {
			var vr gsheets.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			tab, _, _ := parseRange(a)
			f.tabs[tab] = append(f.tabs[tab], toStrings(vr.Values)...)
			writeJSON(w, gsheets.AppendValuesResponse{SpreadsheetId: docID})
			return
		}
		tab, col, row := parseRange(rng)
		if r.Method == http.MethodPut {
			var vr gsheets.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			cells := f.tabs[tab][row-1]
			for len(cells) < col {
				cells = append(cells, "")
			}
			cells[col-1] = toStrings(vr.Values)[0][0]
			f.tabs[tab][row-1] = cells
			writeJSON(w, gsheets.UpdateValuesResponse{SpreadsheetId: docID})
			return
		}
		var values [][]interface{}
		for _, r := range f.tabs[tab] {
			row := make([]interface{}, len(r))
			for i, c := range r {
				row[i] = c
			}
			values = append(values, row)
		}
		writeJSON(w, gsheets.ValueRange{Range: rng, MajorDimension: "ROWS", Values: values})

	default:
		http.Error(w, "unsupported: "+r.Method+" "+r.URL.Path, http.StatusNotImplemented)
	}
}

func (f *fakeSheets) titleFor(id int64) string {
	for t, i := range f.ids {
		if i == id {
			return t
		}
	}
	return ""
}

func (f *fakeSheets) rows(tab string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tabs[tab]
}

// parseRange splits 'Tab'!B7 into ("Tab", 2, 7). Column and row are zero
// when the range names a whole tab.
func parseRange(rng string) (tab string, col, row int) {
	quoted, cell, _ := strings.Cut(rng, "!")
	tab = strings.ReplaceAll(strings.Trim(quoted, "'"), "''", "'")
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	row, _ = strconv.Atoi(cell[i:])
	return tab, col, row
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, r := range values {
		for _, v := range r {
			s, _ := v.(string)
			out[i] = append(out[i], s)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) (*sheets.Store, *fakeSheets) {
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := sheets.New(context.Background(), sheets.Config{SpreadsheetID: docID},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return store, fake
}

// =============================================================================
// TESTS
// =============================================================================

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := sheets.New(context.Background(), sheets.Config{})
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 3: "C", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for col, want := range cases {
		assert.Equal(t, want, sheets.ColumnLetter(col), "col %d", col)
	}
}

func TestAppendReadUpdate(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendRow(ctx, tracking.TableChecklist, []string{"FALSE", "Payment", "AB12CD34"}))
	require.NoError(t, store.UpdateCell(ctx, tracking.TableChecklist, 2, 1, "TRUE"))

	snap, err := store.ReadAll(ctx, tracking.TableChecklist)
	require.NoError(t, err)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "TRUE", snap.Rows[0].Get(tracking.ColDone))
	assert.Equal(t, [][]string{
		{"Done", "StepName", "TrackingCode"},
		{"TRUE", "Payment", "AB12CD34"},
	}, fake.rows(tracking.TableChecklist))
}

func TestDeleteRows_SheetZeroAndMemoizedIDs(t *testing.T) {
	// GIVEN: three clients on sheet 0
	store, fake := newTestStore(t)
	ctx := context.Background()
	for _, c := range []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC"} {
		require.NoError(t, store.AppendRow(ctx, tracking.TableClients, []string{c, "n", "s"}))
	}

	// WHEN: deleting row 2 and then rows 2-3
	require.NoError(t, store.DeleteRow(ctx, tracking.TableClients, 2))
	cells, err := store.ReadCells(ctx, tracking.TableClients)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", cells[1][0])

	require.NoError(t, store.DeleteRows(ctx, tracking.TableClients, 2, 3))

	// THEN: only the header remains and metadata was fetched once
	assert.Equal(t, [][]string{tracking.Headers[tracking.TableClients]}, fake.rows(tracking.TableClients))
	assert.Equal(t, 1, fake.metadata)
}

func TestWritesRejectHeaderRow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	assert.ErrorIs(t, store.UpdateCell(ctx, tracking.TableSteps, 1, 1, "x"), tracking.ErrInvalidRow)
	assert.ErrorIs(t, store.DeleteRow(ctx, tracking.TableSteps, 1), tracking.ErrInvalidRow)
}

func TestPing(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestAPIErrorSurfacesAsStorageUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"permission denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	store, err := sheets.New(context.Background(), sheets.Config{SpreadsheetID: docID},
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	svc := tracking.NewService(store, tracking.NewMemoryCache(time.Minute), zap.NewNop())
	_, err = svc.Track(context.Background(), "AB12CD34")
	assert.ErrorIs(t, err, tracking.ErrStorageUnavailable)
}

func TestServiceOnSheets(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	svc := tracking.NewService(store, tracking.NewMemoryCache(time.Minute), zap.NewNop())

	client, err := svc.AddClient(ctx, "Amina", "Visa")
	require.NoError(t, err)
	require.NoError(t, svc.AddStep(ctx, "Payment"))
	require.NoError(t, svc.EnableStep(ctx, client.Code, "Payment"))
	done, err := svc.ToggleDone(ctx, client.Code, "Payment")
	require.NoError(t, err)
	assert.True(t, done)

	status, err := svc.Track(ctx, client.Code)
	require.NoError(t, err)
	assert.Equal(t, []tracking.ChecklistItem{{Name: "Payment", Done: true}}, status.Checklist)

	require.NoError(t, svc.DeleteStep(ctx, "Payment"))
	assert.Len(t, fake.rows(tracking.TableChecklist), 1)
	assert.Len(t, fake.rows(tracking.TableSteps), 1)
}
