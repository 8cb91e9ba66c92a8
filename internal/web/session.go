package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/provider"
	"github.com/JonMunkholm/fastro/internal/search"
)

const (
	sessionIDKey    = "sid"
	viewIdleTimeout = 30 * time.Minute
	maxTableViews   = 10000
)

// session loads the browser session, assigning a session id on first use.
// The cookie is written before any response body.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessions.Session, string) {
	sess, err := s.sessions.Get(r, s.cfg.Session.Name)
	if err != nil {
		// A cookie signed with an old key decodes to a fresh session.
		logging.FromContext(r.Context()).Debug("discarding unreadable session", "error", err)
	}
	sid, _ := sess.Values[sessionIDKey].(string)
	if sid == "" {
		sid = uuid.NewString()
		sess.Values[sessionIDKey] = sid
		if err := sess.Save(r, w); err != nil {
			logging.FromContext(r.Context()).Warn("saving session", "error", err)
		}
	}
	return sess, sid
}

// addFlashes stores notifications to show after a redirect.
func (s *Server) addFlashes(w http.ResponseWriter, r *http.Request, list []provider.Notification) {
	if len(list) == 0 {
		return
	}
	sess, _ := s.session(w, r)
	for _, n := range list {
		data, err := json.Marshal(n)
		if err != nil {
			continue
		}
		sess.AddFlash(string(data))
	}
	if err := sess.Save(r, w); err != nil {
		logging.FromContext(r.Context()).Warn("saving flashes", "error", err)
	}
}

// takeFlashes returns and clears the stored notifications. Expired ones are
// dropped.
func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) []provider.Notification {
	sess, _ := s.session(w, r)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		logging.FromContext(r.Context()).Warn("clearing flashes", "error", err)
	}

	now := time.Now()
	out := make([]provider.Notification, 0, len(flashes))
	for _, f := range flashes {
		raw, ok := f.(string)
		if !ok {
			continue
		}
		var n provider.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil || n.Expired(now) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// tableView is one session's open table: the orchestrator with its
// selection, modal and row states, plus the grid and search state.
type tableView struct {
	def      core.TableDefinition
	table    *core.Table
	binding  *provider.Binding
	searcher *search.Searcher // nil when the table has no searchable columns

	mu       sync.Mutex
	grid     core.GridState
	loadErr  error
	loading  bool
	lastSeen time.Time
}

// reload replaces the rows with a fresh load through the query cache.
func (v *tableView) reload(ctx context.Context) {
	state := v.binding.Load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = state.IsLoading
	if state.IsError {
		v.loadErr = state.Err
		return
	}
	v.loadErr = nil
	v.table.SetRows(state.Rows)
}

func (v *tableView) gridState() core.GridState {
	v.mu.Lock()
	defer v.mu.Unlock()
	g := v.grid
	g.Sorts = append([]core.SortSpec(nil), v.grid.Sorts...)
	g.Filters = append([]core.ColumnFilter(nil), v.grid.Filters...)
	return g
}

func (v *tableView) updateGrid(fn func(g *core.GridState)) {
	v.mu.Lock()
	fn(&v.grid)
	v.mu.Unlock()
}

func (v *tableView) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *tableView) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// viewStore keeps table views per session. Views idle longer than the
// timeout are dropped, and once limit views are open the least recently
// seen one makes room for a new one. A zero limit keeps every view.
type viewStore struct {
	mu    sync.Mutex
	views map[string]*tableView
	idle  time.Duration
	limit int
	now   func() time.Time
}

func newViewStore(ctx context.Context, idle time.Duration, limit int) *viewStore {
	vs := &viewStore{
		views: make(map[string]*tableView),
		idle:  idle,
		limit: limit,
		now:   time.Now,
	}
	go vs.cleanup(ctx)
	return vs
}

func viewKey(sid, table string) string {
	return sid + "|" + table
}

// get returns the view for sid and table, creating it with create.
func (vs *viewStore) get(sid, table string, create func() *tableView) *tableView {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := viewKey(sid, table)
	v, ok := vs.views[key]
	if !ok {
		if vs.limit > 0 && len(vs.views) >= vs.limit {
			vs.dropOldest()
		}
		v = create()
		vs.views[key] = v
	}
	v.touch(vs.now())
	return v
}

// dropOldest removes the least recently seen view. vs.mu must be held.
func (vs *viewStore) dropOldest() {
	var (
		oldestKey string
		oldest    *tableView
	)
	for key, v := range vs.views {
		if oldest == nil || v.idleSince().Before(oldest.idleSince()) {
			oldestKey, oldest = key, v
		}
	}
	if oldest == nil {
		return
	}
	if oldest.searcher != nil {
		oldest.searcher.Stop()
	}
	delete(vs.views, oldestKey)
}

// evict drops views idle past the timeout and returns how many it removed.
func (vs *viewStore) evict() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	cutoff := vs.now().Add(-vs.idle)
	n := 0
	for key, v := range vs.views {
		if v.idleSince().Before(cutoff) {
			if v.searcher != nil {
				v.searcher.Stop()
			}
			delete(vs.views, key)
			n++
		}
	}
	return n
}

func (vs *viewStore) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := vs.evict(); n > 0 {
				logging.Component("views").Debug("evicted idle table views", "count", n)
			}
		}
	}
}

func (vs *viewStore) len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.views)
}

func (vs *viewStore) close() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	for key, v := range vs.views {
		if v.searcher != nil {
			v.searcher.Stop()
		}
		delete(vs.views, key)
	}
}

// view returns the calling session's view of the resolved table. The first
// request of a session loads the rows. A request without a session cookie
// gets a view that lives only as long as the request; views are kept once
// the cookie comes back.
func (s *Server) view(w http.ResponseWriter, r *http.Request) *tableView {
	def := definition(r)
	sess, sid := s.session(w, r)
	if sess.IsNew {
		v := s.newTableView(def)
		if v.searcher != nil {
			context.AfterFunc(r.Context(), v.searcher.Stop)
		}
		v.reload(r.Context())
		return v
	}

	created := false
	v := s.views.get(sid, def.Info.Key, func() *tableView {
		created = true
		return s.newTableView(def)
	})
	if created {
		v.reload(r.Context())
	}
	return v
}

func (s *Server) newTableView(def core.TableDefinition) *tableView {
	b := s.binding(def)
	v := &tableView{
		def:     def,
		table:   core.NewTable(def.Config(), b.Handlers(), nil),
		binding: b,
		grid:    core.GridState{Page: 1},
	}
	if cols := def.SearchColumns(); len(cols) > 0 {
		v.searcher = search.New(s.deps.Store, def.Info.Key, cols,
			search.WithDelay(s.cfg.Search.Delay),
			search.WithLimit(s.cfg.Search.Limit),
			search.WithObserver(s.deps.Metrics.Search),
		)
	}
	return v
}
