/*
schema.go - Table layout of the tracking spreadsheet

PURPOSE:
  The tracking data lives in four flat tables (tabs of one spreadsheet).
  Row 1 of every table is the header; data starts at row 2. Columns are
  addressed by header name, falling back to the canonical position below
  when a header cell is missing.

TABLES:
  Clients:   TrackingCode | Name | Service
  Steps:     StepName                        (row order = catalog order)
  Checklist: Done | StepName | TrackingCode  (row exists = step enabled)
  Admins:    Username | Password             (read-only)

SEE ALSO:
  - table.go: TableAccessor contract
  - store/sheets, store/sqlite: storage backends
*/
package tracking

import "strings"

// Table names as they appear in the spreadsheet.
const (
	TableClients   = "Clients"
	TableSteps     = "Steps"
	TableChecklist = "Checklist"
	TableAdmins    = "Admins"
)

// Column names.
const (
	ColTrackingCode = "TrackingCode"
	ColName         = "Name"
	ColService      = "Service"
	ColStepName     = "StepName"
	ColDone         = "Done"
	ColUsername     = "Username"
	ColPassword     = "Password"
)

// HeaderRow is the 1-based index of the header row.
const HeaderRow = 1

// Boolean cell values used by the Done column.
const (
	CellTrue  = "TRUE"
	CellFalse = "FALSE"
)

// Headers maps every table to its canonical header.
var Headers = map[string][]string{
	TableClients:   {ColTrackingCode, ColName, ColService},
	TableSteps:     {ColStepName},
	TableChecklist: {ColDone, ColStepName, ColTrackingCode},
	TableAdmins:    {ColUsername, ColPassword},
}

// Tables lists the table names in a stable order.
func Tables() []string {
	return []string{TableClients, TableSteps, TableChecklist, TableAdmins}
}

// ColumnIndex returns the 1-based position of column in header. If the
// header does not name the column, the canonical position for table is
// used. Zero means the column is unknown.
func ColumnIndex(table string, header []string, column string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i + 1
		}
	}
	for i, h := range Headers[table] {
		if h == column {
			return i + 1
		}
	}
	return 0
}

// NormalizeCode is the comparison key for tracking codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SameStep reports whether two step names refer to the same step.
func SameStep(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ParseDone interprets a Done cell. Anything other than TRUE is false.
func ParseDone(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), CellTrue)
}

// FormatDone renders a Done cell.
func FormatDone(done bool) string {
	if done {
		return CellTrue
	}
	return CellFalse
}
