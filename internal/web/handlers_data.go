package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/fastro/internal/core"
)

// TableSummary describes one registered table.
type TableSummary struct {
	Key         string        `json:"key"`
	Group       string        `json:"group"`
	Label       string        `json:"label"`
	Description string        `json:"description,omitempty"`
	Columns     []string      `json:"columns"`
	Features    core.Features `json:"features"`
}

// TableGroup is a navigation group of tables.
type TableGroup struct {
	Name   string         `json:"name"`
	Tables []TableSummary `json:"tables"`
}

// RowsResponse is one page of a table.
type RowsResponse struct {
	Table      string        `json:"table"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalRows  int           `json:"totalRows"`
	TotalPages int           `json:"totalPages"`
	Rows       []core.Record `json:"rows"`
}

// handleListTables returns all tables organized by group.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	groups := make([]TableGroup, 0)
	for _, name := range core.Groups() {
		defs := core.ByGroup(name)
		g := TableGroup{Name: name, Tables: make([]TableSummary, len(defs))}
		for i, def := range defs {
			g.Tables[i] = TableSummary{
				Key:         def.Info.Key,
				Group:       def.Info.Group,
				Label:       def.Info.Label,
				Description: def.Info.Description,
				Columns:     def.Columns(),
				Features:    def.Features,
			}
		}
		groups = append(groups, g)
	}
	writeJSON(w, groups)
}

// handleAPIRows returns one page of a table through the query cache.
// Query parameters: page, q (matched against every column), sort and dir.
func (s *Server) handleAPIRows(w http.ResponseWriter, r *http.Request) {
	def := definition(r)
	state := s.binding(def).Load(r.Context())
	if state.IsError {
		respondError(w, r, state.Err, http.StatusBadGateway)
		return
	}

	grid := core.GridState{
		Page:   parseIntParam(r, "page", 1),
		Global: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if col := r.URL.Query().Get("sort"); col != "" {
		dir := "asc"
		if strings.EqualFold(r.URL.Query().Get("dir"), "desc") {
			dir = "desc"
		}
		grid.Sorts = []core.SortSpec{{Column: col, Dir: dir}}
	}

	view := core.NewTable(def.Config(), core.Handlers{}, state.Rows).View(grid)
	writeJSON(w, RowsResponse{
		Table:      def.Info.Key,
		Page:       view.Page,
		PageSize:   view.PageSize,
		TotalRows:  view.TotalRows,
		TotalPages: view.TotalPages,
		Rows:       view.Rows,
	})
}
