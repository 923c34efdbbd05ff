/*
Package sheets implements tracking.TableAccessor on a Google spreadsheet.

PURPOSE:
  The production backend. Each tracking table is a tab of one spreadsheet
  whose title equals the table name (Clients, Steps, Checklist, Admins).

API MAPPING:
  ReadAll / ReadCells   spreadsheets.values.get     'Tab'
  AppendRow             spreadsheets.values.append  'Tab' (INSERT_ROWS)
  UpdateCell            spreadsheets.values.update  'Tab'!C7
  DeleteRow(s)          spreadsheets.batchUpdate    DeleteDimension(ROWS)

  Row deletion needs the numeric sheet ID of the tab. IDs are looked up by
  title once and memoized.

  AppendRow targets the whole tab, so Sheets appends after the first
  contiguous block of data it finds. A blank row inside a tab's data makes
  new rows land in that gap rather than at the end; keep tabs gap-free.

CREDENTIALS:
  A service-account JSON blob (Config.CredentialsJSON) or a path to one
  (Config.CredentialsFile). Extra client options (endpoint, HTTP client)
  can be passed for tests.

ERRORS:
  API failures are returned as-is; the tracking service wraps them as
  ErrStorageUnavailable. There is no retry and no client-side timeout
  beyond the request context.
*/
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/Mgdadali/249-subsite/tracking"
)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// Store is a spreadsheet-backed TableAccessor.
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// New connects to the Sheets API.
func New(ctx context.Context, cfg Config, extra ...option.ClientOption) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	opts = append(opts, option.WithScopes(gsheets.SpreadsheetsScope))
	opts = append(opts, extra...)

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Ping checks that the spreadsheet is reachable and has every table.
func (s *Store) Ping(ctx context.Context) error {
	for _, t := range tracking.Tables() {
		if _, err := s.sheetID(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) ReadAll(ctx context.Context, table string) (tracking.Snapshot, error) {
	cells, err := s.ReadCells(ctx, table)
	if err != nil {
		return tracking.Snapshot{}, err
	}
	return tracking.SnapshotFromCells(table, cells), nil
}

func (s *Store) ReadCells(ctx context.Context, table string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteTab(table)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) AppendRow(ctx context.Context, table string, values []string) error {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, quoteTab(table), &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", table, err)
	}
	return nil
}

func (s *Store) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	if row <= tracking.HeaderRow || col < 1 {
		return fmt.Errorf("%w: cell %d,%d", tracking.ErrInvalidRow, row, col)
	}
	rng := fmt.Sprintf("%s!%s%d", quoteTab(table), ColumnLetter(col), row)
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{{value}}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, table string, row int) error {
	return s.DeleteRows(ctx, table, row, row)
}

func (s *Store) DeleteRows(ctx context.Context, table string, from, to int) error {
	if from <= tracking.HeaderRow || to < from {
		return fmt.Errorf("%w: rows %d-%d", tracking.ErrInvalidRow, from, to)
	}
	id, err := s.sheetID(ctx, table)
	if err != nil {
		return err
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(from - 1), // 0-based, inclusive
					EndIndex:   int64(to),       // 0-based, exclusive
					// sheet 0 and index 0 are valid and must not be dropped
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete rows %d-%d of %s: %w", from, to, table, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// sheetID returns the numeric ID of the tab titled table.
func (s *Store) sheetID(ctx context.Context, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.sheetIDs[table]; ok {
		return id, nil
	}
	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to load spreadsheet metadata: %w", err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok := s.sheetIDs[table]
	if !ok {
		return 0, fmt.Errorf("spreadsheet has no tab named %q", table)
	}
	return id, nil
}

// quoteTab quotes a tab title for A1 notation.
func quoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// ColumnLetter converts a 1-based column index to A1 letters (1 -> A,
// 27 -> AA).
func ColumnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
