package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/provider"
	"github.com/JonMunkholm/fastro/internal/web/views"
)

// navGroups lists the registered tables by navigation group.
func navGroups() []views.NavGroup {
	var groups []views.NavGroup
	for _, name := range core.Groups() {
		defs := core.ByGroup(name)
		infos := make([]core.TableInfo, len(defs))
		for i, def := range defs {
			infos[i] = def.Info
		}
		groups = append(groups, views.NavGroup{Name: name, Tables: infos})
	}
	return groups
}

// handleIndex renders the table index.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	groups := navGroups()
	page := views.PageParams{
		Title:         "Tables",
		Groups:        groups,
		Notifications: s.takeFlashes(w, r),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Page(page, views.Index(groups)).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleTablePage renders the full table screen with fresh rows. Any modal
// left open by an earlier page is closed.
func (s *Server) handleTablePage(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	v.reload(r.Context())
	v.table.CloseModal()

	notes := append(s.takeFlashes(w, r), provider.InboxFrom(r.Context()).Drain()...)
	page := views.PageParams{
		Title:         v.def.Info.Label,
		Groups:        navGroups(),
		Active:        v.def.Info.Key,
		Notifications: notes,
	}
	if s.deps.Hub != nil && s.cfg.Realtime.Enabled {
		page.InitURL = "/tables/" + v.def.Info.Key + "/updates"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Page(page, views.TablePage(s.tableParams(v))).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleTableUpdates is the long-lived SSE endpoint of the table page. Each
// change ping reloads the rows through the (already invalidated) cache and
// re-patches the grid.
func (s *Server) handleTableUpdates(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil || !s.cfg.Realtime.Enabled {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	updates := s.deps.Hub.Subscribe(v.def.Info.Key)
	defer s.deps.Hub.Unsubscribe(v.def.Info.Key, updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			v.reload(ctx)
			s.patchGrid(sse, r, v)
		}
	}
}

// handleRefresh drops the table's cached queries and reloads.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	v.binding.Invalidate()
	v.reload(r.Context())
	s.patchGrid(sse, r, v)
}

// handleGrid applies the filter bar.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var sig gridSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	cols := v.table.Columns()
	v.updateGrid(func(g *core.GridState) {
		g.Filters = filtersFrom(sig, cols)
		g.Global = strings.TrimSpace(sig.Global)
		g.Page = 1
	})
	s.patchGrid(sse, r, v)
}

// handleGridReset clears filters and sorting.
func (s *Server) handleGridReset(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	v.updateGrid(func(g *core.GridState) {
		*g = core.GridState{Page: 1}
	})
	_ = sse.MarshalAndPatchSignals(map[string]any{
		"filterCol":   "",
		"filterValue": "",
		"global":      "",
	})
	s.patchGrid(sse, r, v)
}

// handlePage moves to another page. Out-of-range pages are clamped.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chiParam(r, "page"))
	if err != nil || n < 1 {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	v := s.view(w, r)
	sse := datastar.NewSSE(w, r)

	v.updateGrid(func(g *core.GridState) { g.Page = n })
	s.patchGrid(sse, r, v)
}

// handleSort cycles the sort of one column.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	v := s.view(w, r)
	column := chiParam(r, "column")
	if !v.table.Config().Features.ColumnOrdering {
		respondError(w, r, core.ErrFeatureDisabled, http.StatusBadRequest)
		return
	}
	if _, ok := core.Column(v.table.Columns(), column); !ok {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)

	v.updateGrid(func(g *core.GridState) { g.Sorts = toggleSort(g.Sorts, column) })
	s.patchGrid(sse, r, v)
}

// handleSearch runs a rich search for the bound search term. The client
// debounces keystrokes; results of a request overtaken by a newer one are
// dropped without a patch.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var sig gridSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		respondError(w, r, errBadRequest, http.StatusBadRequest)
		return
	}
	v := s.view(w, r)
	if v.searcher == nil {
		respondError(w, r, core.ErrFeatureDisabled, http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)

	res, latest := v.searcher.Search(r.Context(), sig.Search)
	if !latest {
		return
	}
	params := views.SearchParams{
		Table:   v.def.Info.Key,
		Term:    strings.TrimSpace(sig.Search),
		Columns: v.def.SearchColumns(),
		Rows:    res.Rows,
	}
	if res.Err != nil {
		params.Err = core.MapError(res.Err).Message
	}
	if err := sse.PatchElementTempl(views.SearchResults(params)); err != nil {
		_ = sse.ConsoleError(err)
	}
}
