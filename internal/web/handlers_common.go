// Package web provides HTTP handlers for the table dashboard.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/provider"
	"github.com/JonMunkholm/fastro/internal/web/views"
)

// gridSignals are the grid controls bound on the table page.
type gridSignals struct {
	FilterCol   string         `json:"filterCol"`
	FilterOp    string         `json:"filterOp"`
	FilterValue string         `json:"filterValue"`
	Global      string         `json:"global"`
	Search      string         `json:"search"`
	CellValue   string         `json:"cellValue"`
	Form        map[string]any `json:"form"`
}

// chiParam returns an unescaped URL parameter.
func chiParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// toggleSort cycles column through ascending, descending and unsorted. The
// toggled column becomes the only sort.
func toggleSort(sorts []core.SortSpec, column string) []core.SortSpec {
	if len(sorts) > 0 && sorts[0].Column == column {
		if strings.EqualFold(sorts[0].Dir, "desc") {
			return nil
		}
		return []core.SortSpec{{Column: column, Dir: "desc"}}
	}
	return []core.SortSpec{{Column: column, Dir: "asc"}}
}

// filtersFrom builds the column filter of the filter bar. Columns the table
// does not show are ignored.
func filtersFrom(sig gridSignals, cols []core.ColumnDef) []core.ColumnFilter {
	value := strings.TrimSpace(sig.FilterValue)
	if sig.FilterCol == "" || value == "" {
		return nil
	}
	if _, ok := core.Column(cols, sig.FilterCol); !ok {
		return nil
	}
	op := core.FilterOperator(sig.FilterOp)
	if op == "" {
		op = core.OpContains
	}
	return []core.ColumnFilter{{Column: sig.FilterCol, Operator: op, Value: value}}
}

// formValues orders the submitted form signals like the open form's fields.
func formValues(form *core.Form, values map[string]any) core.Record {
	var order []string
	if form != nil {
		order = make([]string, 0, len(form.Fields))
		for _, f := range form.Fields {
			order = append(order, f.Name)
		}
	}
	return core.RecordFromMap(values, order)
}

// isTableError reports whether err is a rejection by the orchestrator rather
// than a backend failure. Backend failures are already notified by the
// table's binding.
func isTableError(err error) bool {
	var ferrs core.FieldErrors
	if errors.As(err, &ferrs) {
		return true
	}
	for _, target := range []error{
		core.ErrRowBusy,
		core.ErrRowNotFound,
		core.ErrColumnNotEditable,
		core.ErrNoSelection,
		core.ErrFeatureDisabled,
		core.ErrNoPendingConfirm,
		core.ErrActionNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// notifyFailure reports a rejected intent to the user. Backend failures are
// left to the binding, which notifies and logs them itself.
func notifyFailure(r *http.Request, title string, err error) {
	if err == nil || !isTableError(err) {
		return
	}
	logging.FromContext(r.Context()).Debug(title, "error", err)
	provider.Notify(r.Context(), provider.Failure(title, err))
}

// tableParams snapshots a view for rendering.
func (s *Server) tableParams(v *tableView) views.TableParams {
	grid := v.gridState()
	page := v.table.View(grid)

	selected := make(map[string]bool)
	for _, row := range v.table.Selected() {
		selected[row.IdentityKey()] = true
	}
	states := make(map[string]core.RowState, len(page.Rows))
	for _, row := range page.Rows {
		id := row.IdentityKey()
		if st := v.table.RowState(id); st != core.RowClean {
			states[id] = st
		}
	}

	v.mu.Lock()
	loadErr, loading := v.loadErr, v.loading
	v.mu.Unlock()

	p := views.TableParams{
		Info:          v.def.Info,
		Features:      v.table.Config().Features,
		View:          page,
		Grid:          grid,
		Selected:      selected,
		RowStates:     states,
		BulkActions:   v.def.BulkActions,
		CustomActions: v.def.CustomActions,
		Loading:       loading,
		InFlight:      s.deps.Metrics.Active(),
		Search:        v.searcher != nil,
		Import:        v.def.Features.CSVImport && s.deps.Importer != nil && s.deps.Importer.Enabled(),
		Debounce:      s.cfg.Search.Delay,
	}
	if loadErr != nil {
		msg := core.MapError(loadErr)
		p.LoadErr = msg.Message
	}
	return p
}

func (s *Server) modalParams(v *tableView) views.ModalParams {
	return views.ModalParams{
		Table:  v.def.Info.Key,
		Modal:  v.table.Modal(),
		Upload: s.deps.Storage != nil,
	}
}

// patchGrid sends the grid and the notifications raised by the request.
func (s *Server) patchGrid(sse *datastar.ServerSentEventGenerator, r *http.Request, v *tableView) {
	if err := sse.PatchElementTempl(views.Grid(s.tableParams(v))); err != nil {
		_ = sse.ConsoleError(err)
	}
	flushToasts(sse, r)
}

// patchTable sends the grid, the modal slot and the notifications.
func (s *Server) patchTable(sse *datastar.ServerSentEventGenerator, r *http.Request, v *tableView) {
	if err := sse.PatchElementTempl(views.Modal(s.modalParams(v))); err != nil {
		_ = sse.ConsoleError(err)
	}
	s.patchGrid(sse, r, v)
}

// patchModal sends the modal slot and the notifications.
func (s *Server) patchModal(sse *datastar.ServerSentEventGenerator, r *http.Request, v *tableView) {
	if err := sse.PatchElementTempl(views.Modal(s.modalParams(v))); err != nil {
		_ = sse.ConsoleError(err)
	}
	flushToasts(sse, r)
}

// flushToasts appends the request's notifications to the toast stack.
func flushToasts(sse *datastar.ServerSentEventGenerator, r *http.Request) {
	list := provider.InboxFrom(r.Context()).Drain()
	if len(list) == 0 {
		return
	}
	if err := sse.PatchElementTempl(views.Toasts(list),
		datastar.WithSelectorID(views.NotificationsID),
		datastar.WithModeAppend(),
	); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
