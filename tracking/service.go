/*
service.go - Tracking operations over the table accessor and cache

PURPOSE:
  Service is the explicitly constructed context every handler works
  through: a TableAccessor, a Cache and a logger. It owns the read-through
  caching, the checklist reconciliation calls, and cache invalidation after
  writes.

READ PATH:
  Track / AllSteps / ClientChecklist
    -> clients (cached: clients_all)
    -> catalog (cached: steps_catalog)
    -> client entries (cached: client_checklist_<CODE>)
    -> ClientView / AdminView

WRITE PATH:
  Writes always locate rows on a fresh ReadCells, never on cached data,
  then invalidate the affected keys:
    AddClient                 clients_all
    Toggle/Enable/Disable     client_checklist_<CODE>
    ToggleDone                client_checklist_<CODE>
    AddStep, ReorderSteps     steps_catalog
    DeleteStep                steps_catalog + every client_checklist_*

KNOWN LIMITATIONS:
  - Read-then-write is not atomic; two admins enabling the same step at
    once can create duplicate Checklist rows. Lookups take the first row.
  - ReorderSteps deletes the catalog before re-inserting it. A failure in
    between leaves a truncated catalog.
  - Admin passwords are stored and compared in plaintext.
*/
package tracking

import (
	"context"
	"crypto/subtle"
	"io"
	"strings"

	"go.uber.org/zap"
)

// MaxCodeAttempts bounds tracking code issuance retries on collision.
const MaxCodeAttempts = 5

// Service implements the tracking operations.
type Service struct {
	Tables TableAccessor
	Cache  Cache
	Logger *zap.Logger

	// Rand is the tracking code entropy source; nil means crypto/rand.
	Rand io.Reader
}

// NewService wires a Service. A nil logger is replaced with a no-op one.
func NewService(tables TableAccessor, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Tables: tables, Cache: cache, Logger: logger}
}

// =============================================================================
// READ-THROUGH HELPERS
// =============================================================================

func (s *Service) cached(ctx context.Context, key string, load func() (Snapshot, error)) (Snapshot, error) {
	if snap, ok := s.Cache.Get(ctx, key); ok {
		s.Logger.Debug("cache hit", zap.String("key", key))
		return snap, nil
	}
	snap, err := load()
	if err != nil {
		return Snapshot{}, err
	}
	s.Cache.Set(ctx, key, snap)
	return snap, nil
}

func (s *Service) readTable(ctx context.Context, table string) (Snapshot, error) {
	snap, err := s.Tables.ReadAll(ctx, table)
	return snap, WrapStorage("read", table, err)
}

func (s *Service) readCells(ctx context.Context, table string) ([][]string, error) {
	cells, err := s.Tables.ReadCells(ctx, table)
	return cells, WrapStorage("read", table, err)
}

func (s *Service) clients(ctx context.Context) (Snapshot, error) {
	return s.cached(ctx, CacheKeyClients, func() (Snapshot, error) {
		return s.readTable(ctx, TableClients)
	})
}

func (s *Service) catalog(ctx context.Context) ([]string, error) {
	snap, err := s.cached(ctx, CacheKeySteps, func() (Snapshot, error) {
		return s.readTable(ctx, TableSteps)
	})
	if err != nil {
		return nil, err
	}
	return CatalogNames(snap), nil
}

// entries returns the Checklist rows of one client. The cached value holds
// only that client's rows, with their original row indices.
func (s *Service) entries(ctx context.Context, code string) ([]ChecklistEntry, error) {
	snap, err := s.cached(ctx, ChecklistCacheKey(code), func() (Snapshot, error) {
		all, err := s.readTable(ctx, TableChecklist)
		if err != nil {
			return Snapshot{}, err
		}
		key := NormalizeCode(code)
		subset := Snapshot{Header: all.Header}
		for _, r := range all.Rows {
			if NormalizeCode(r.Get(ColTrackingCode)) == key {
				subset.Rows = append(subset.Rows, r)
			}
		}
		return subset, nil
	})
	if err != nil {
		return nil, err
	}
	return EntriesFor(snap, code), nil
}

func (s *Service) findClient(ctx context.Context, code string) (Client, error) {
	key := NormalizeCode(code)
	if key == "" {
		return Client{}, invalid("code", "tracking code is required")
	}
	snap, err := s.clients(ctx)
	if err != nil {
		return Client{}, err
	}
	for _, r := range snap.Rows {
		if c := clientFromRow(r); c.Code == key {
			return c, nil
		}
	}
	return Client{}, clientNotFound(key)
}

// catalogStep returns the catalog spelling of step.
func (s *Service) catalogStep(ctx context.Context, step string) (string, error) {
	names, err := s.catalog(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if SameStep(n, step) {
			return n, nil
		}
	}
	return "", stepNotFound(step)
}

// =============================================================================
// PUBLIC LOOKUPS
// =============================================================================

// Track returns a client's name, service and enabled steps.
func (s *Service) Track(ctx context.Context, code string) (ClientStatus, error) {
	client, err := s.findClient(ctx, code)
	if err != nil {
		return ClientStatus{}, err
	}
	items, err := s.clientView(ctx, client.Code)
	if err != nil {
		return ClientStatus{}, err
	}
	return ClientStatus{Client: client, Checklist: items}, nil
}

// ClientChecklist returns the client-facing checklist for an admin.
func (s *Service) ClientChecklist(ctx context.Context, code string) ([]ChecklistItem, error) {
	client, err := s.findClient(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.clientView(ctx, client.Code)
}

func (s *Service) clientView(ctx context.Context, code string) ([]ChecklistItem, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, code)
	if err != nil {
		return nil, err
	}
	return ClientView(catalog, entries), nil
}

// AllSteps returns every catalog step with its state for the client.
func (s *Service) AllSteps(ctx context.Context, code string) ([]StepState, error) {
	client, err := s.findClient(ctx, code)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, client.Code)
	if err != nil {
		return nil, err
	}
	return AdminView(catalog, entries), nil
}

// ListClients returns every client in table order.
func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	snap, err := s.clients(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Client, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		if c := clientFromRow(r); c.Code != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListSteps returns the catalog in order.
func (s *Service) ListSteps(ctx context.Context) ([]string, error) {
	return s.catalog(ctx)
}

// =============================================================================
// CLIENTS
// =============================================================================

// AddClient creates a client with a freshly issued tracking code.
func (s *Service) AddClient(ctx context.Context, name, service string) (Client, error) {
	name = strings.TrimSpace(name)
	service = strings.TrimSpace(service)
	if name == "" {
		return Client{}, invalid("name", "name is required")
	}

	snap, err := s.readTable(ctx, TableClients)
	if err != nil {
		return Client{}, err
	}
	taken := make(map[string]bool, len(snap.Rows))
	for _, r := range snap.Rows {
		taken[NormalizeCode(r.Get(ColTrackingCode))] = true
	}

	var code string
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		c, err := NewTrackingCode(s.Rand)
		if err != nil {
			return Client{}, err
		}
		if !taken[c] {
			code = c
			break
		}
		s.Logger.Warn("tracking code collision", zap.String("code", c), zap.Int("attempt", attempt+1))
	}
	if code == "" {
		return Client{}, ErrCodeExhausted
	}

	client := Client{Code: code, Name: name, Service: service}
	values := orderValues(TableClients, snap.Header, map[string]string{
		ColTrackingCode: client.Code,
		ColName:         client.Name,
		ColService:      client.Service,
	})
	if err := WrapStorage("append", TableClients, s.Tables.AppendRow(ctx, TableClients, values)); err != nil {
		return Client{}, err
	}
	s.Cache.Invalidate(ctx, CacheKeyClients)
	s.Logger.Info("client added", zap.String("code", client.Code))
	return client, nil
}

// =============================================================================
// PER-CLIENT CHECKLIST
// =============================================================================

// checklistTarget resolves the client and catalog step for a checklist
// write, then reads the Checklist table fresh.
type checklistTarget struct {
	code  string
	step  string
	cells [][]string
	cols  ChecklistColumns
}

func (s *Service) target(ctx context.Context, code, step string) (checklistTarget, error) {
	if strings.TrimSpace(step) == "" {
		return checklistTarget{}, invalid("step", "step is required")
	}
	client, err := s.findClient(ctx, code)
	if err != nil {
		return checklistTarget{}, err
	}
	name, err := s.catalogStep(ctx, step)
	if err != nil {
		return checklistTarget{}, err
	}
	cells, err := s.readCells(ctx, TableChecklist)
	if err != nil {
		return checklistTarget{}, err
	}
	var header []string
	if len(cells) > 0 {
		header = cells[0]
	}
	return checklistTarget{
		code:  client.Code,
		step:  name,
		cells: cells,
		cols:  ResolveChecklistColumns(header),
	}, nil
}

func (s *Service) appendEntry(ctx context.Context, t checklistTarget) error {
	var header []string
	if len(t.cells) > 0 {
		header = t.cells[0]
	}
	values := orderValues(TableChecklist, header, map[string]string{
		ColDone:         CellFalse,
		ColStepName:     t.step,
		ColTrackingCode: t.code,
	})
	return WrapStorage("append", TableChecklist, s.Tables.AppendRow(ctx, TableChecklist, values))
}

// ToggleStep enables a step for a client, or disables it when enabled.
// It returns the new enabled state.
func (s *Service) ToggleStep(ctx context.Context, code, step string) (bool, error) {
	t, err := s.target(ctx, code, step)
	if err != nil {
		return false, err
	}
	defer s.Cache.Invalidate(ctx, ChecklistCacheKey(t.code))

	if row, _, found := FindChecklistRow(t.cells, t.cols, t.code, t.step); found {
		if err := WrapStorage("delete", TableChecklist, s.Tables.DeleteRow(ctx, TableChecklist, row)); err != nil {
			return false, err
		}
		s.Logger.Info("step disabled", zap.String("code", t.code), zap.String("step", t.step))
		return false, nil
	}
	if err := s.appendEntry(ctx, t); err != nil {
		return false, err
	}
	s.Logger.Info("step enabled", zap.String("code", t.code), zap.String("step", t.step))
	return true, nil
}

// EnableStep makes a step apply to a client. Enabling an enabled step
// changes nothing.
func (s *Service) EnableStep(ctx context.Context, code, step string) error {
	t, err := s.target(ctx, code, step)
	if err != nil {
		return err
	}
	if _, _, found := FindChecklistRow(t.cells, t.cols, t.code, t.step); found {
		return nil
	}
	defer s.Cache.Invalidate(ctx, ChecklistCacheKey(t.code))
	if err := s.appendEntry(ctx, t); err != nil {
		return err
	}
	s.Logger.Info("step enabled", zap.String("code", t.code), zap.String("step", t.step))
	return nil
}

// DisableStep removes a step from a client's checklist.
func (s *Service) DisableStep(ctx context.Context, code, step string) error {
	t, err := s.target(ctx, code, step)
	if err != nil {
		return err
	}
	row, _, found := FindChecklistRow(t.cells, t.cols, t.code, t.step)
	if !found {
		return &NotFoundError{Kind: "checklist entry", Key: t.code + "/" + t.step}
	}
	defer s.Cache.Invalidate(ctx, ChecklistCacheKey(t.code))
	if err := WrapStorage("delete", TableChecklist, s.Tables.DeleteRow(ctx, TableChecklist, row)); err != nil {
		return err
	}
	s.Logger.Info("step disabled", zap.String("code", t.code), zap.String("step", t.step))
	return nil
}

// ToggleDone flips the completion flag of an enabled step and returns the
// new value.
func (s *Service) ToggleDone(ctx context.Context, code, step string) (bool, error) {
	t, err := s.target(ctx, code, step)
	if err != nil {
		return false, err
	}
	row, done, found := FindChecklistRow(t.cells, t.cols, t.code, t.step)
	if !found {
		return false, invalid("step", "step is not enabled for this client")
	}
	defer s.Cache.Invalidate(ctx, ChecklistCacheKey(t.code))
	err = s.Tables.UpdateCell(ctx, TableChecklist, row, t.cols.Done, FormatDone(!done))
	if err := WrapStorage("update", TableChecklist, err); err != nil {
		return false, err
	}
	s.Logger.Info("step done toggled",
		zap.String("code", t.code), zap.String("step", t.step), zap.Bool("done", !done))
	return !done, nil
}

// =============================================================================
// CATALOG
// =============================================================================

// AddStep appends a step to the catalog.
func (s *Service) AddStep(ctx context.Context, step string) error {
	step = strings.TrimSpace(step)
	if step == "" {
		return invalid("step", "step is required")
	}
	snap, err := s.readTable(ctx, TableSteps)
	if err != nil {
		return err
	}
	for _, n := range CatalogNames(snap) {
		if SameStep(n, step) {
			return invalid("step", "step already exists")
		}
	}
	values := orderValues(TableSteps, snap.Header, map[string]string{ColStepName: step})
	if err := WrapStorage("append", TableSteps, s.Tables.AppendRow(ctx, TableSteps, values)); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, CacheKeySteps)
	s.Logger.Info("step added", zap.String("step", step))
	return nil
}

// DeleteStep removes a step from the catalog and from every client's
// checklist.
func (s *Service) DeleteStep(ctx context.Context, step string) error {
	step = strings.TrimSpace(step)
	if step == "" {
		return invalid("step", "step is required")
	}
	cells, err := s.readCells(ctx, TableSteps)
	if err != nil {
		return err
	}
	var header []string
	if len(cells) > 0 {
		header = cells[0]
	}
	rows := FindStepRows(cells, ColumnIndex(TableSteps, header, ColStepName), step)
	if len(rows) == 0 {
		return stepNotFound(step)
	}

	defer s.Cache.InvalidatePattern(ctx, CacheKeyChecklistPrefix)
	defer s.Cache.Invalidate(ctx, CacheKeySteps)

	if err := s.deleteRows(ctx, TableSteps, rows); err != nil {
		return err
	}

	checklist, err := s.readCells(ctx, TableChecklist)
	if err != nil {
		return err
	}
	if len(checklist) > 0 {
		header = checklist[0]
	} else {
		header = nil
	}
	cascade := FindStepRows(checklist, ResolveChecklistColumns(header).StepName, step)
	if err := s.deleteRows(ctx, TableChecklist, cascade); err != nil {
		return err
	}
	s.Logger.Info("step deleted", zap.String("step", step), zap.Int("checklist_rows", len(cascade)))
	return nil
}

// ReorderSteps rewrites the catalog in the given order. steps must hold
// exactly the current catalog names.
func (s *Service) ReorderSteps(ctx context.Context, steps []string) error {
	ordered := make([]string, 0, len(steps))
	for _, st := range steps {
		st = strings.TrimSpace(st)
		if st == "" {
			return invalid("steps", "step names must not be blank")
		}
		ordered = append(ordered, st)
	}

	cells, err := s.readCells(ctx, TableSteps)
	if err != nil {
		return err
	}
	current := CatalogNames(SnapshotFromCells(TableSteps, cells))
	ordered, ok := storedOrder(current, ordered)
	if !ok {
		return invalid("steps", "steps must list every catalog step exactly once")
	}

	defer s.Cache.Invalidate(ctx, CacheKeySteps)
	if len(cells) > HeaderRow {
		err := s.Tables.DeleteRows(ctx, TableSteps, HeaderRow+1, len(cells))
		if err := WrapStorage("delete", TableSteps, err); err != nil {
			return err
		}
	}
	var header []string
	if len(cells) > 0 {
		header = cells[0]
	}
	for _, st := range ordered {
		values := orderValues(TableSteps, header, map[string]string{ColStepName: st})
		if err := WrapStorage("append", TableSteps, s.Tables.AppendRow(ctx, TableSteps, values)); err != nil {
			s.Logger.Error("reorder interrupted; catalog is incomplete", zap.Error(err))
			return err
		}
	}
	s.Logger.Info("steps reordered", zap.Int("count", len(ordered)))
	return nil
}

// =============================================================================
// ADMINS
// =============================================================================

// Authenticate checks a username and password against the Admins table.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Admin, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Admin{}, invalid("username", "username and password are required")
	}
	snap, err := s.readTable(ctx, TableAdmins)
	if err != nil {
		return Admin{}, err
	}
	for _, r := range snap.Rows {
		userOK := subtle.ConstantTimeCompare([]byte(r.Get(ColUsername)), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(r.Get(ColPassword)), []byte(password)) == 1
		if userOK && passOK {
			return Admin{Username: r.Get(ColUsername)}, nil
		}
	}
	s.Logger.Info("admin login rejected", zap.String("username", username))
	return Admin{}, ErrInvalidCredentials
}

// =============================================================================
// HELPERS
// =============================================================================

// deleteRows removes the given ascending row indices bottom-up, collapsing
// contiguous runs into one DeleteRows call.
func (s *Service) deleteRows(ctx context.Context, table string, rows []int) error {
	for end := len(rows) - 1; end >= 0; {
		start := end
		for start > 0 && rows[start-1] == rows[start]-1 {
			start--
		}
		var err error
		if start == end {
			err = s.Tables.DeleteRow(ctx, table, rows[end])
		} else {
			err = s.Tables.DeleteRows(ctx, table, rows[start], rows[end])
		}
		if err := WrapStorage("delete", table, err); err != nil {
			return err
		}
		end = start - 1
	}
	return nil
}

// orderValues lays out values by header, falling back to the canonical
// header of table when the stored one is empty.
func orderValues(table string, header []string, values map[string]string) []string {
	if len(header) == 0 {
		header = Headers[table]
	}
	out := make([]string, len(header))
	for i, h := range header {
		for col, v := range values {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				out[i] = v
			}
		}
	}
	return out
}

// storedOrder maps each requested name to the catalog's own spelling,
// matched with SameStep. It fails unless requested is a permutation of
// current.
func storedOrder(current, requested []string) ([]string, bool) {
	if len(current) != len(requested) {
		return nil, false
	}
	used := make([]bool, len(current))
	out := make([]string, 0, len(requested))
	for _, want := range requested {
		found := -1
		for i, have := range current {
			if !used[i] && SameStep(have, want) {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		used[found] = true
		out = append(out, current[found])
	}
	return out, true
}
