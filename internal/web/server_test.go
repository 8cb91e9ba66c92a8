package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/JonMunkholm/fastro/internal/cache"
	"github.com/JonMunkholm/fastro/internal/config"
	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/core/tables"
	"github.com/JonMunkholm/fastro/internal/metrics"
	"github.com/JonMunkholm/fastro/internal/web/views"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    []core.Record
	created []core.Record
	updates map[any]core.Record
}

func (f *fakeStore) Fetch(_ context.Context, _ string, _ backend.Query) (backend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return backend.Result{Rows: f.rows}, nil
}

func (f *fakeStore) RPC(_ context.Context, _ string, _ map[string]any) ([]core.Record, error) {
	return f.rows, nil
}

func (f *fakeStore) Create(_ context.Context, _ string, row core.Record, _ ...string) (core.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, row)
	return row, nil
}

func (f *fakeStore) Update(_ context.Context, _ string, id any, values core.Record, _ ...string) (core.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[any]core.Record)
	}
	f.updates[id] = values
	return values, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, _ any) error {
	return nil
}

func (f *fakeStore) BulkDelete(_ context.Context, _ string, _ []backend.Filter) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Search:   config.SearchConfig{Delay: 10 * time.Millisecond, Limit: 10},
		Session:  config.SessionConfig{Secret: "0123456789abcdef0123456789abcdef", Name: "test_session"},
		Security: config.SecurityConfig{EnableCSP: true, CORSOrigins: []string{"*"}},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fakeStore) {
	t.Helper()

	core.Clear()
	core.Register(core.TableDefinition{
		Info: core.TableInfo{Key: "posts", Group: "Content", Label: "Posts"},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Variant: core.Custom},
			{Name: "title", Variant: core.Custom, Default: "", Editable: true},
			{Name: "views", Variant: core.Custom, Default: 0},
		},
		Features: core.DefaultFeatures(),
	})
	t.Cleanup(core.Clear)

	store := &fakeStore{rows: []core.Record{
		core.NewRecord(core.Pair{Key: "id", Value: "1"}, core.Pair{Key: "title", Value: "Hello"}, core.Pair{Key: "views", Value: 3}),
		core.NewRecord(core.Pair{Key: "id", Value: "2"}, core.Pair{Key: "title", Value: "World"}, core.Pair{Key: "views", Value: 7}),
	}}
	srv := NewServer(cfg, Deps{
		Store:   store,
		Cache:   cache.New(time.Minute),
		Metrics: metrics.New(),
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, store
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestTablePageRendersRows(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/tables/posts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Posts")
	assert.Contains(t, body, "Hello")
	assert.Contains(t, body, `id="grid"`)
	assert.NotEmpty(t, rec.Result().Cookies(), "session cookie is set")
}

func TestUnknownTable(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/tables/nope/rows", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Code)
}

func TestAPIRows(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/tables/posts/rows?sort=views&dir=desc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Table     string           `json:"table"`
		TotalRows int              `json:"totalRows"`
		Rows      []map[string]any `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "posts", resp.Table)
	assert.Equal(t, 2, resp.TotalRows)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "World", resp.Rows[0]["title"])
}

func TestAPIRowsGlobalFilter(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/tables/posts/rows?q=hel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RowsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TotalRows)
}

func TestListTables(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/tables", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []TableGroup
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Content", groups[0].Name)
	assert.Equal(t, []string{"id", "title", "views"}, groups[0].Tables[0].Columns)
}

func TestDownloadTemplateExcludesID(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/tables/posts/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "title,views\n", rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	srv, _ := newTestServer(t, cfg)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/tables", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = serve(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEditCellStreamsGrid(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/tables/posts/rows/1/cell/title", strings.NewReader(`{"cellValue":"Updated"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, `id="grid"`)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Contains(t, store.updates, any("1"))
	assert.Equal(t, "Updated", store.updates["1"].Value("title"))
}

// withSampleTables makes the investors and payments tables resolvable next
// to posts.
func withSampleTables(t *testing.T) {
	t.Helper()
	require.NoError(t, core.Add(tables.Investors()))
	require.NoError(t, core.Add(tables.Payments()))
}

func postSignals(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	return serve(srv, req)
}

func TestSubmitCreateStoresColumnTypes(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	withSampleTables(t)

	rec := postSignals(srv, "/tables/investors/create", `{"form":{
		"name":"Ada","firm":"Lovelace Capital","email":"ada@lc.test","role":"partner",
		"check_size":"250000","country":"GB","brand_color":"#2563eb",
		"contacts":"ops@lc.test, legal@lc.test","lead":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	rec = postSignals(srv, "/tables/investors/create", `{"form":{"name":"Bo","contacts":"","check_size":"","lead":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postSignals(srv, "/tables/payments/create", `{"form":{
		"invoice":"INV-9","customer":"Acme","email":"billing@acme.test",
		"amount":120.5,"status":"pending","method":"card","paid_at":""}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.created, 3)

	investor := store.created[0]
	assert.Equal(t, []string{"ops@lc.test", "legal@lc.test"}, investor.Value("contacts"))
	assert.Equal(t, 250000.0, investor.Value("check_size"))
	assert.Equal(t, true, investor.Value("lead"))

	blank := store.created[1]
	assert.Equal(t, []string{}, blank.Value("contacts"))
	assert.Nil(t, blank.Value("check_size"))
	assert.Equal(t, false, blank.Value("lead"))

	payment := store.created[2]
	assert.Nil(t, payment.Value("paid_at"))
	assert.True(t, payment.Has("paid_at"))
	assert.Equal(t, 120.5, payment.Value("amount"))
}

func TestSubmitEditKeepsCreatedAt(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	withSampleTables(t)

	created := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	store.mu.Lock()
	store.rows = []core.Record{core.NewRecord(
		core.Pair{Key: "id", Value: "p1"},
		core.Pair{Key: "invoice", Value: "INV-1"},
		core.Pair{Key: "customer", Value: "Acme"},
		core.Pair{Key: "email", Value: "billing@acme.test"},
		core.Pair{Key: "amount", Value: 120.5},
		core.Pair{Key: "status", Value: "pending"},
		core.Pair{Key: "method", Value: "card"},
		core.Pair{Key: "paid_at", Value: nil},
		core.Pair{Key: "created_at", Value: created},
	)}
	store.mu.Unlock()

	rec := postSignals(srv, "/tables/payments/rows/p1/edit", `{"form":{
		"invoice":"INV-1","customer":"Acme","email":"billing@acme.test",
		"amount":120.5,"status":"complete","method":"card","paid_at":"2024-03-05",
		"created_at":"2024-01-15"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Contains(t, store.updates, any("p1"))
	got := store.updates["p1"]
	assert.Equal(t, []string{"status", "paid_at"}, got.Keys())
	assert.Equal(t, "complete", got.Value("status"))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got.Value("paid_at"))
	assert.False(t, got.Has("created_at"))
}

func TestSubmitEditWithoutChangesWritesNothing(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	withSampleTables(t)

	store.mu.Lock()
	store.rows = []core.Record{core.NewRecord(
		core.Pair{Key: "id", Value: "i1"},
		core.Pair{Key: "name", Value: "Ada"},
		core.Pair{Key: "contacts", Value: []any{"ops@lc.test"}},
		core.Pair{Key: "check_size", Value: 250000.0},
		core.Pair{Key: "lead", Value: true},
		core.Pair{Key: "created_at", Value: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)},
	)}
	store.mu.Unlock()

	rec := postSignals(srv, "/tables/investors/rows/i1/edit", `{"form":{
		"name":"Ada","contacts":"ops@lc.test","check_size":250000,"lead":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.updates)
}

func TestEditCellRejectsReadOnlyColumn(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/tables/posts/rows/1/cell/views", strings.NewReader(`{"cellValue":"9"}`))
	req.Header.Set("Datastar-Request", "true")
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#"+views.NotificationsID)
	assert.Empty(t, store.updates)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     1,
		window:   time.Minute,
		now:      func() time.Time { return now },
	}

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "limits are per IP")

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("a"), "a new window resets the budget")
}

func TestToggleSort(t *testing.T) {
	sorts := toggleSort(nil, "title")
	assert.Equal(t, []core.SortSpec{{Column: "title", Dir: "asc"}}, sorts)

	sorts = toggleSort(sorts, "title")
	assert.Equal(t, []core.SortSpec{{Column: "title", Dir: "desc"}}, sorts)

	assert.Nil(t, toggleSort(sorts, "title"))
	assert.Equal(t, []core.SortSpec{{Column: "views", Dir: "asc"}}, toggleSort(sorts, "views"))
}

func TestFiltersFrom(t *testing.T) {
	cols := []core.ColumnDef{{Key: "title"}, {Key: "views"}}

	tests := []struct {
		name string
		sig  gridSignals
		want []core.ColumnFilter
	}{
		{"empty", gridSignals{}, nil},
		{"blank value", gridSignals{FilterCol: "title", FilterValue: "  "}, nil},
		{"unknown column", gridSignals{FilterCol: "secret", FilterValue: "x"}, nil},
		{"default operator", gridSignals{FilterCol: "title", FilterValue: " he "},
			[]core.ColumnFilter{{Column: "title", Operator: core.OpContains, Value: "he"}}},
		{"explicit operator", gridSignals{FilterCol: "views", FilterOp: "gte", FilterValue: "5"},
			[]core.ColumnFilter{{Column: "views", Operator: core.OpGreaterEq, Value: "5"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filtersFrom(tt.sig, cols))
		})
	}
}

func TestIsTableError(t *testing.T) {
	assert.True(t, isTableError(core.ErrRowBusy))
	assert.True(t, isTableError(core.FieldErrors{"email": "invalid email"}))
	assert.False(t, isTableError(context.DeadlineExceeded))
}

func TestViewStoreEvictsIdleViews(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	vs := &viewStore{
		views: make(map[string]*tableView),
		idle:  30 * time.Minute,
		now:   func() time.Time { return now },
	}

	vs.get("s1", "posts", func() *tableView { return &tableView{} })
	now = now.Add(20 * time.Minute)
	vs.get("s2", "posts", func() *tableView { return &tableView{} })
	assert.Equal(t, 2, vs.len())

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, vs.evict())
	assert.Equal(t, 1, vs.len())

	created := false
	vs.get("s1", "posts", func() *tableView { created = true; return &tableView{} })
	assert.True(t, created, "evicted views are rebuilt")
}

func TestViewStoreDropsOldestAtLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	vs := &viewStore{
		views: make(map[string]*tableView),
		idle:  30 * time.Minute,
		limit: 2,
		now:   func() time.Time { return now },
	}

	vs.get("s1", "posts", func() *tableView { return &tableView{} })
	now = now.Add(time.Second)
	vs.get("s2", "posts", func() *tableView { return &tableView{} })
	now = now.Add(time.Second)
	vs.get("s1", "posts", func() *tableView { return &tableView{} })
	now = now.Add(time.Second)
	vs.get("s3", "posts", func() *tableView { return &tableView{} })
	assert.Equal(t, 2, vs.len())

	created := false
	vs.get("s2", "posts", func() *tableView { created = true; return &tableView{} })
	assert.True(t, created, "the least recently seen view made room")
}

func TestCookielessRequestsKeepNoViews(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for i := 0; i < 3; i++ {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/tables/posts", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Hello")
	}
	assert.Zero(t, srv.views.len())

	first := serve(srv, httptest.NewRequest(http.MethodGet, "/tables/posts", nil))
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/tables/posts", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		require.Equal(t, http.StatusOK, serve(srv, req).Code)
	}
	assert.Equal(t, 1, srv.views.len())
}
