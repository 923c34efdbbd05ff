package tracking

import "strings"

// =============================================================================
// TABLE DATA
// =============================================================================

// Row is one data row of a table.
type Row struct {
	// Index is the 1-based row number in the table (header is row 1).
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// Get returns the value of column, or "" when absent.
func (r Row) Get(column string) string {
	return r.Fields[column]
}

// Snapshot is a full read of one table.
type Snapshot struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// SnapshotFromCells converts raw cells (header first) of table into a
// Snapshot. Row fields are keyed by canonical column name, resolved with
// ColumnIndex so hand-edited headers ("done", " Done ") and missing header
// cells read the same columns writes use. Other header cells are kept
// under their trimmed text. Short rows are padded with empty values.
func SnapshotFromCells(table string, cells [][]string) Snapshot {
	if len(cells) == 0 {
		return Snapshot{}
	}
	header := append([]string(nil), cells[0]...)
	canonical := Headers[table]
	positions := make(map[string]int, len(header)+len(canonical))
	for _, col := range canonical {
		if idx := ColumnIndex(table, header, col); idx > 0 {
			positions[col] = idx
		}
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, taken := positions[name]; name != "" && !taken && !isCanonical(canonical, name) {
			positions[name] = i + 1
		}
	}

	rows := make([]Row, 0, len(cells)-1)
	for i, raw := range cells[1:] {
		fields := make(map[string]string, len(positions))
		for name, idx := range positions {
			if idx <= len(raw) {
				fields[name] = raw[idx-1]
			} else {
				fields[name] = ""
			}
		}
		rows = append(rows, Row{Index: i + 2, Fields: fields})
	}
	return Snapshot{Header: header, Rows: rows}
}

func isCanonical(canonical []string, name string) bool {
	for _, col := range canonical {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

// =============================================================================
// DOMAIN RECORDS
// =============================================================================

// Client is a customer with a tracking code.
type Client struct {
	Code    string
	Name    string
	Service string
}

// Admin is a staff account allowed into the admin panel.
type Admin struct {
	Username string
}

// ChecklistEntry records that a step applies to a client.
type ChecklistEntry struct {
	Row          int
	TrackingCode string
	StepName     string
	Done         bool
}

// ChecklistItem is one step in the client-facing checklist.
type ChecklistItem struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// StepState is one catalog step as seen from the admin panel.
type StepState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Done    bool   `json:"done"`
}

// ClientStatus is the public answer to a tracking lookup.
type ClientStatus struct {
	Client    Client
	Checklist []ChecklistItem
}

func clientFromRow(r Row) Client {
	return Client{
		Code:    NormalizeCode(r.Get(ColTrackingCode)),
		Name:    r.Get(ColName),
		Service: r.Get(ColService),
	}
}

func entryFromRow(r Row) ChecklistEntry {
	return ChecklistEntry{
		Row:          r.Index,
		TrackingCode: NormalizeCode(r.Get(ColTrackingCode)),
		StepName:     strings.TrimSpace(r.Get(ColStepName)),
		Done:         ParseDone(r.Get(ColDone)),
	}
}
