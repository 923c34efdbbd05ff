/*
seed.go - Demo scenarios for local development

PURPOSE:
  Populates a backend with an admin account and, optionally, a sample
  catalog and clients so the panel and /track can be exercised without a
  real spreadsheet.

AVAILABLE SCENARIOS:
  empty:  admin account only
  demo:   admin, five catalog steps, two clients with partial checklists

HOW SCENARIOS WORK:
  1. Optionally reset (delete every data row, keep headers)
  2. Append admin row
  3. Append catalog, clients and checklist rows

NOTE:
  Reset is destructive on a real spreadsheet. Only use on dev backends.

SEE ALSO:
  - cmd/server/seed.go: `server seed` command
*/
package tracking

import (
	"context"
	"fmt"
)

// Scenario describes a seed data set.
type Scenario struct {
	ID          string
	Description string
}

// Scenarios lists the available seed data sets.
var Scenarios = []Scenario{
	{ID: "empty", Description: "Admin account only"},
	{ID: "demo", Description: "Admin, sample steps and two clients"},
}

var demoSteps = []string{"Documents received", "Application filed", "Payment", "Review", "Delivered"}

var demoClients = []struct {
	Client
	Enabled map[string]bool // step -> done
}{
	{
		Client:  Client{Code: "AB12CD34", Name: "Amina Yusuf", Service: "Visa renewal"},
		Enabled: map[string]bool{"Documents received": true, "Application filed": true, "Payment": false},
	},
	{
		Client:  Client{Code: "9F00E1A7", Name: "Omar Salih", Service: "Company registration"},
		Enabled: map[string]bool{"Documents received": false},
	},
}

// ResetTables deletes every data row of every table, keeping headers.
func ResetTables(ctx context.Context, tables TableAccessor) error {
	for _, t := range Tables() {
		cells, err := tables.ReadCells(ctx, t)
		if err != nil {
			return WrapStorage("read", t, err)
		}
		if len(cells) <= HeaderRow {
			continue
		}
		if err := tables.DeleteRows(ctx, t, HeaderRow+1, len(cells)); err != nil {
			return WrapStorage("delete", t, err)
		}
	}
	return nil
}

// LoadScenario appends the rows of scenario id. The admin account is
// created with the given credentials.
func LoadScenario(ctx context.Context, tables TableAccessor, id, username, password string) error {
	if username == "" || password == "" {
		return invalid("admin", "admin username and password are required")
	}
	switch id {
	case "empty":
		return appendRow(ctx, tables, TableAdmins, map[string]string{ColUsername: username, ColPassword: password})
	case "demo":
		if err := appendRow(ctx, tables, TableAdmins, map[string]string{ColUsername: username, ColPassword: password}); err != nil {
			return err
		}
		for _, step := range demoSteps {
			if err := appendRow(ctx, tables, TableSteps, map[string]string{ColStepName: step}); err != nil {
				return err
			}
		}
		for _, c := range demoClients {
			err := appendRow(ctx, tables, TableClients, map[string]string{
				ColTrackingCode: c.Code, ColName: c.Name, ColService: c.Service,
			})
			if err != nil {
				return err
			}
			// catalog order keeps the sheet readable
			for _, step := range demoSteps {
				done, ok := c.Enabled[step]
				if !ok {
					continue
				}
				err := appendRow(ctx, tables, TableChecklist, map[string]string{
					ColDone: FormatDone(done), ColStepName: step, ColTrackingCode: c.Code,
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return invalid("scenario", fmt.Sprintf("unknown scenario %q", id))
	}
}

func appendRow(ctx context.Context, tables TableAccessor, table string, values map[string]string) error {
	cells, err := tables.ReadCells(ctx, table)
	if err != nil {
		return WrapStorage("read", table, err)
	}
	var header []string
	if len(cells) > 0 {
		header = cells[0]
	}
	return WrapStorage("append", table, tables.AppendRow(ctx, table, orderValues(table, header, values)))
}
