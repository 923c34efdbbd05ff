/*
checklist.go - Reconciliation of the step catalog with per-client entries

PURPOSE:
  Joins the global ordered catalog (Steps table) with the Checklist rows of
  one client to produce the two views the HTTP layer serves.

VIEWS:
  ClientView: catalog order, only steps the client has an entry for.
  AdminView:  every catalog step, with Enabled = has entry.

MATCHING RULES:
  - Tracking codes and step names compare trimmed and case-folded.
  - Duplicate catalog names are reconciled independently (no dedup).
  - Entries naming a step missing from the catalog are dropped from both
    views. They reappear if the step is re-added.
  - Duplicate entries for the same (code, step): first row wins.

ROW LOCATION:
  FindChecklistRow scans raw Checklist cells, skipping the header, and
  returns the first row matching (code, step). O(rows) per lookup.
*/
package tracking

import "strings"

// EntriesFor filters Checklist rows down to one client, keeping row order.
func EntriesFor(checklist Snapshot, code string) []ChecklistEntry {
	key := NormalizeCode(code)
	var out []ChecklistEntry
	for _, r := range checklist.Rows {
		e := entryFromRow(r)
		if e.TrackingCode == key && e.StepName != "" {
			out = append(out, e)
		}
	}
	return out
}

// lookupEntry returns the first entry for step.
func lookupEntry(entries []ChecklistEntry, step string) (ChecklistEntry, bool) {
	for _, e := range entries {
		if SameStep(e.StepName, step) {
			return e, true
		}
	}
	return ChecklistEntry{}, false
}

// ClientView lists the client's enabled steps in catalog order.
func ClientView(catalog []string, entries []ChecklistEntry) []ChecklistItem {
	items := make([]ChecklistItem, 0, len(entries))
	for _, step := range catalog {
		if e, ok := lookupEntry(entries, step); ok {
			items = append(items, ChecklistItem{Name: step, Done: e.Done})
		}
	}
	return items
}

// AdminView lists every catalog step with its state for the client.
func AdminView(catalog []string, entries []ChecklistEntry) []StepState {
	states := make([]StepState, 0, len(catalog))
	for _, step := range catalog {
		e, ok := lookupEntry(entries, step)
		states = append(states, StepState{
			Name:    step,
			Enabled: ok,
			Done:    ok && e.Done,
		})
	}
	return states
}

// ChecklistColumns holds 1-based Checklist column positions.
type ChecklistColumns struct {
	Done         int
	StepName     int
	TrackingCode int
}

// ResolveChecklistColumns reads column positions from the header row.
func ResolveChecklistColumns(header []string) ChecklistColumns {
	return ChecklistColumns{
		Done:         ColumnIndex(TableChecklist, header, ColDone),
		StepName:     ColumnIndex(TableChecklist, header, ColStepName),
		TrackingCode: ColumnIndex(TableChecklist, header, ColTrackingCode),
	}
}

// FindChecklistRow returns the 1-based row index of the first Checklist
// row for (code, step) and its Done value.
func FindChecklistRow(cells [][]string, cols ChecklistColumns, code, step string) (row int, done bool, found bool) {
	key := NormalizeCode(code)
	for i := 1; i < len(cells); i++ {
		raw := cells[i]
		if NormalizeCode(cell(raw, cols.TrackingCode)) != key {
			continue
		}
		if !SameStep(cell(raw, cols.StepName), step) {
			continue
		}
		return i + 1, ParseDone(cell(raw, cols.Done)), true
	}
	return 0, false, false
}

// FindStepRows returns every 1-based row index in cells whose column col
// names step, in ascending order.
func FindStepRows(cells [][]string, col int, step string) []int {
	var rows []int
	for i := 1; i < len(cells); i++ {
		if SameStep(cell(cells[i], col), step) {
			rows = append(rows, i+1)
		}
	}
	return rows
}

// CatalogNames extracts trimmed, non-blank step names in row order.
func CatalogNames(steps Snapshot) []string {
	names := make([]string, 0, len(steps.Rows))
	for _, r := range steps.Rows {
		if name := strings.TrimSpace(r.Get(ColStepName)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// cell returns the 1-based column of raw, or "" if out of range.
func cell(raw []string, col int) string {
	if col < 1 || col > len(raw) {
		return ""
	}
	return raw[col-1]
}
