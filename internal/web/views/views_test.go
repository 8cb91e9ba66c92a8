package views

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/provider"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	return sb.String()
}

func sampleTable(rows ...core.Record) *core.Table {
	cfg := core.TableConfig{
		Title:          "Influencers",
		Variants:       core.VariantMap{"email": core.Email, "status": core.Status},
		EditableFields: []string{"status"},
		Dropdowns: core.DropdownOptions{"status": {
			{Value: "active", Label: "Active"},
			{Value: "pending", Label: "Pending"},
		}},
		Features: core.DefaultFeatures(),
	}
	return core.NewTable(cfg, core.Handlers{}, rows)
}

func TestPageEscapesAndWiresUpdates(t *testing.T) {
	out := render(t, Page(PageParams{
		Title:   `<Influencers>`,
		InitURL: "/tables/influencers/updates",
		Groups: []NavGroup{{Name: "Databases", Tables: []core.TableInfo{
			{Key: "influencers", Label: "Influencers"},
		}}},
		Active: "influencers",
	}, Index(nil)))

	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, "<title>&lt;Influencers&gt; - Fastro</title>")
	assert.Contains(t, out, `data-init="@get(&#39;/tables/influencers/updates&#39;)"`)
	assert.Contains(t, out, `<li class="active"><a href="/tables/influencers">`)
	assert.Contains(t, out, `id="notifications"`)
}

func TestGridRendersCellsSelectionAndEmptyState(t *testing.T) {
	tbl := sampleTable(
		core.NewRecord(core.Pair{Key: "id", Value: 1}, core.Pair{Key: "email", Value: "ada@example.com"}, core.Pair{Key: "status", Value: "active"}),
		core.NewRecord(core.Pair{Key: "id", Value: 2}, core.Pair{Key: "email", Value: nil}, core.Pair{Key: "status", Value: "pending"}),
	)
	_, err := tbl.Toggle("2")
	require.NoError(t, err)

	out := render(t, Grid(TableParams{
		Info:     core.TableInfo{Key: "influencers", Label: "Influencers"},
		Features: core.DefaultFeatures(),
		View:     tbl.Page(1),
		Selected: map[string]bool{"2": true},
	}))

	assert.Contains(t, out, `href="mailto:ada@example.com"`)
	assert.Contains(t, out, core.EmptyText)
	assert.Contains(t, out, "1 selected")
	assert.Contains(t, out, "/tables/influencers/rows/2/cell/status")
	assert.Contains(t, out, `<option value="active" selected>Active</option>`)

	empty := render(t, Grid(TableParams{
		Info:     core.TableInfo{Key: "influencers"},
		Features: core.DefaultFeatures(),
		View:     sampleTable().Page(1),
	}))
	assert.Contains(t, empty, core.DefaultEmptyState)
}

func TestGridLoadErrorOffersRetry(t *testing.T) {
	out := render(t, Grid(TableParams{
		Info:    core.TableInfo{Key: "payments"},
		LoadErr: "Database connection failed",
	}))
	assert.Contains(t, out, "Database connection failed")
	assert.Contains(t, out, "/tables/payments/refresh")
	assert.NotContains(t, out, "<table>")
}

func TestModalCreateFormSeedsSignals(t *testing.T) {
	tbl := core.NewTable(core.TableConfig{
		Template: core.NewRecord(core.Pair{Key: "name", Value: ""}, core.Pair{Key: "revenue", Value: 0}),
		Variants: core.VariantMap{"revenue": core.Currency},
		Features: core.DefaultFeatures(),
	}, core.Handlers{}, nil)
	_, err := tbl.OpenCreate()
	require.NoError(t, err)

	out := render(t, Modal(ModalParams{Table: "investors", Modal: tbl.Modal()}))
	assert.Contains(t, out, core.CreateModalTitle)
	assert.Contains(t, out, `data-bind="form.revenue"`)
	assert.Contains(t, out, `type="number"`)
	assert.Contains(t, out, "/tables/investors/create")
	assert.Contains(t, out, "&#34;form&#34;")
}

func TestModalConfirmAndClosed(t *testing.T) {
	tbl := sampleTable(core.NewRecord(core.Pair{Key: "id", Value: 5}))
	_, err := tbl.RequestDelete("5")
	require.NoError(t, err)

	out := render(t, Modal(ModalParams{Table: "influencers", Modal: tbl.Modal()}))
	assert.Contains(t, out, core.ConfirmTitle)
	assert.Contains(t, out, "/tables/influencers/confirm")
	assert.Contains(t, out, "/tables/influencers/cancel")

	tbl.CancelConfirm()
	closed := render(t, Modal(ModalParams{Table: "influencers", Modal: tbl.Modal()}))
	assert.Equal(t, `<div id="modal"></div>`, closed)
}

func TestModalShowsMutationError(t *testing.T) {
	out := render(t, Modal(ModalParams{Table: "t", Modal: core.Modal{
		Kind:  core.ModalEdit,
		Title: core.EditModalTitle,
		Form:  core.BuildForm(core.NewRecord(core.Pair{Key: "name", Value: "x"}), nil, nil),
		Err:   errors.New("duplicate key value violates unique constraint"),
	}}))
	assert.Contains(t, out, "alert-error")
}

func TestNotificationsRenderActionAndTTL(t *testing.T) {
	out := render(t, Notifications([]provider.Notification{
		provider.Success("Influencer created", ""),
		provider.ActionNotice("Import queued", "Job 42", "View job", "https://batch.example.com/jobs/42"),
	}))
	assert.Contains(t, out, "toast-success")
	assert.Contains(t, out, "setTimeout(() =&gt; el.remove(), 5000)")
	assert.Contains(t, out, `href="https://batch.example.com/jobs/42"`)
	assert.Equal(t, 1, strings.Count(out, "setTimeout"), "action notices stay until dismissed")
}

func TestSearchResults(t *testing.T) {
	assert.Equal(t, `<div id="search-results" class="search-results"></div>`,
		render(t, SearchResults(SearchParams{Table: "podcasts"})))

	out := render(t, SearchResults(SearchParams{
		Table:   "podcasts",
		Term:    "gaming",
		Columns: []string{"title", "host"},
		Rows:    []core.Record{core.NewRecord(core.Pair{Key: "id", Value: "p1"}, core.Pair{Key: "title", Value: "Gaming Hour"}, core.Pair{Key: "host", Value: "Sam"})},
	}))
	assert.Contains(t, out, "Gaming Hour")
	assert.Contains(t, out, "/tables/podcasts/rows/p1/preview")
}
