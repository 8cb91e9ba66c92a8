package views

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/fastro/internal/core"
)

// TableParams is everything the grid needs to render.
type TableParams struct {
	Info     core.TableInfo
	Features core.Features
	View     core.PageView
	Grid     core.GridState

	Selected  map[string]bool
	RowStates map[string]core.RowState

	BulkActions   []core.Action
	CustomActions []core.Action

	Loading  bool
	LoadErr  string // User-facing load error; shows the retry action
	InFlight int64  // Mutations in progress across the server
	Search   bool   // Rich search enabled
	Import   bool   // CSV import available
	Debounce time.Duration
}

func (p TableParams) base() string {
	return "/tables/" + url.PathEscape(p.Info.Key)
}

func (p TableParams) rowURL(id, suffix string) string {
	return p.base() + "/rows/" + url.PathEscape(id) + suffix
}

// TablePage is the full table screen: toolbar, search, grid and modal slot.
func TablePage(p TableParams) templ.Component {
	return component(func(ctx context.Context, b *builder) error {
		b.WriteString(`<section class="table-page"`)
		b.attr("data-signals", `{"page":1,"filterCol":"","filterOp":"contains","filterValue":"","global":"","search":"","cellValue":"","form":{}}`)
		b.WriteString("><header><h1>")
		b.text(p.Info.Label)
		b.WriteString("</h1>")
		if p.Info.Description != "" {
			b.WriteString(`<p class="description">`)
			b.text(p.Info.Description)
			b.WriteString("</p>")
		}
		b.WriteString(`<div class="toolbar">`)
		if p.Features.Create {
			b.printf(`<button data-on:click="@get('%s/create')">Create</button>`, p.base())
		}
		if p.Import {
			b.printf(`<button data-on:click="@get('%s/import')">Import CSV</button>`, p.base())
			b.WriteString(`<a`)
			b.attr("href", "/api"+p.base()+"/template")
			b.WriteString(`>Download template</a>`)
		}
		b.WriteString("</div></header>")

		if p.Search {
			b.WriteString(`<div class="search"><input type="search" placeholder="Search..." data-bind="search"`)
			debounce := p.Debounce
			if debounce <= 0 {
				debounce = 400 * time.Millisecond
			}
			b.attr("data-on:input__debounce."+strconv.FormatInt(debounce.Milliseconds(), 10)+"ms", "@post('"+p.base()+"/search')")
			b.printf(`><div id="%s"></div></div>`, SearchID)
		}

		if p.Features.Filtering {
			filterBar(b, p)
		}

		if err := b.child(ctx, Grid(p)); err != nil {
			return err
		}
		b.printf(`<div id="%s"></div>`, ModalID)
		b.WriteString("</section>")
		return nil
	})
}

func filterBar(b *builder, p TableParams) {
	b.WriteString(`<div class="filters"><select data-bind="filterCol"><option value="">Column</option>`)
	for _, c := range p.View.Columns {
		b.WriteString("<option")
		b.attr("value", c.Key)
		b.WriteString(">")
		b.text(c.Header)
		b.WriteString("</option>")
	}
	b.WriteString(`</select><select data-bind="filterOp">`)
	for _, op := range []core.FilterOperator{
		core.OpContains, core.OpEquals, core.OpStartsWith, core.OpEndsWith,
		core.OpGreater, core.OpGreaterEq, core.OpLess, core.OpLessEq, core.OpIn,
	} {
		b.WriteString("<option")
		b.attr("value", string(op))
		b.WriteString(">")
		b.text(string(op))
		b.WriteString("</option>")
	}
	b.WriteString(`</select><input data-bind="filterValue" placeholder="Value">`)
	b.WriteString(`<input data-bind="global" placeholder="Filter all columns">`)
	b.printf(`<button data-on:click="@post('%s/grid')">Apply</button>`, p.base())
	b.printf(`<button data-on:click="@post('%s/grid/reset')">Clear</button></div>`, p.base())
}

// Grid renders the rows of the current page with selection, bulk actions,
// inline editing and pagination.
func Grid(p TableParams) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		b.printf(`<div id="%s" class="grid">`, GridID)
		progress(b, p.InFlight)

		if p.LoadErr != "" {
			b.WriteString(`<div class="empty-state error"><p>`)
			b.text(p.LoadErr)
			b.printf(`</p><button data-on:click="@post('%s/refresh')">Retry</button></div></div>`, p.base())
			return nil
		}
		if p.Loading && p.View.Empty {
			b.WriteString(`<div class="empty-state loading">Loading...</div></div>`)
			return nil
		}

		bulkBar(b, p)

		b.WriteString("<table><thead><tr>")
		if p.Features.RowSelection {
			b.printf(`<th><input type="checkbox" data-on:change="@post('%s/select-all')"></th>`, p.base())
		}
		for _, c := range p.View.Columns {
			b.WriteString("<th>")
			if p.Features.ColumnOrdering {
				b.printf(`<button class="sort" data-on:click="@post('%s/sort/%s')">`, p.base(), url.PathEscape(c.Key))
				b.text(c.Header)
				b.WriteString(sortMark(p.Grid.Sorts, c.Key))
				b.WriteString("</button>")
			} else {
				b.text(c.Header)
			}
			b.WriteString("</th>")
		}
		b.WriteString("<th></th></tr></thead><tbody>")

		if p.View.Empty {
			span := len(p.View.Columns) + 2
			b.printf(`<tr><td class="empty-state" colspan="%d">`, span)
			b.text(p.View.EmptyState)
			b.WriteString("</td></tr>")
		}
		for _, row := range p.View.Rows {
			gridRow(b, p, row)
		}
		b.WriteString("</tbody></table>")

		if p.Features.Pagination && p.View.TotalPages > 1 {
			pager(b, p)
		}
		b.WriteString("</div>")
		return nil
	})
}

func progress(b *builder, n int64) {
	b.printf(`<div id="%s" class="progress"`, ProgressID)
	if n > 0 {
		b.WriteString(` data-active="true">Saving ` + strconv.FormatInt(n, 10) + `...</div>`)
		return
	}
	b.WriteString("></div>")
}

func sortMark(sorts []core.SortSpec, key string) string {
	for _, s := range sorts {
		if s.Column == key {
			if strings.EqualFold(s.Dir, "desc") {
				return " ▼"
			}
			return " ▲"
		}
	}
	return ""
}

func bulkBar(b *builder, p TableParams) {
	if len(p.Selected) == 0 {
		return
	}
	b.WriteString(`<div class="bulk-bar"><span>`)
	b.text(strconv.Itoa(len(p.Selected)) + " selected")
	b.WriteString("</span>")
	if p.Features.Delete {
		b.printf(`<button class="danger" data-on:click="@post('%s/bulk-delete')">Delete selected</button>`, p.base())
	}
	for _, a := range p.BulkActions {
		b.printf(`<button data-on:click="@post('%s/bulk-actions/%s')">`, p.base(), url.PathEscape(a.Label))
		b.text(strings.TrimSpace(a.Icon + " " + a.Label))
		b.WriteString("</button>")
	}
	b.printf(`<button data-on:click="@post('%s/clear-selection')">Clear</button></div>`, p.base())
}

func gridRow(b *builder, p TableParams, row core.Record) {
	id := row.IdentityKey()
	state := p.RowStates[id]

	b.WriteString("<tr")
	b.attr("id", "row-"+id)
	if state != core.RowClean {
		b.attr("data-state", state.String())
	}
	b.WriteString(">")

	if p.Features.RowSelection {
		b.WriteString(`<td><input type="checkbox"`)
		if p.Selected[id] {
			b.WriteString(" checked")
		}
		b.attr("data-on:change", "@post('"+p.rowURL(id, "/select")+"')")
		b.WriteString("></td>")
	}

	for _, c := range p.View.Columns {
		b.WriteString("<td")
		b.attr("data-variant", c.Variant.String())
		b.WriteString(">")
		if c.Editable && p.Features.Edit {
			editableCell(b, p, id, c, row)
		} else {
			cell(b, c.Cell(row))
		}
		b.WriteString("</td>")
	}

	b.WriteString(`<td class="actions">`)
	if p.Features.Preview {
		b.printf(`<button data-on:click="@get('%s')">View</button>`, p.rowURL(id, "/preview"))
	}
	if p.Features.Edit {
		b.printf(`<button data-on:click="@get('%s')">Edit</button>`, p.rowURL(id, "/edit"))
	}
	if p.Features.Delete {
		b.printf(`<button class="danger" data-on:click="@post('%s')">Delete</button>`, p.rowURL(id, "/delete"))
	}
	for _, a := range p.CustomActions {
		b.printf(`<button data-on:click="@post('%s')">`, p.rowURL(id, "/actions/"+url.PathEscape(a.Label)))
		b.text(strings.TrimSpace(a.Icon + " " + a.Label))
		b.WriteString("</button>")
	}
	b.WriteString("</td></tr>")
}

func editableCell(b *builder, p TableParams, id string, c core.ColumnDef, row core.Record) {
	post := "$cellValue = el.value; @post('" + p.rowURL(id, "/cell/"+url.PathEscape(c.Key)) + "')"
	current := core.ToText(row.Value(c.Key))

	if c.EditKind == core.EditSelect {
		b.WriteString("<select")
		b.attr("data-on:change", post)
		b.WriteString(">")
		for _, o := range c.Options {
			b.WriteString("<option")
			b.attr("value", o.Value)
			if o.Value == current {
				b.WriteString(" selected")
			}
			b.WriteString(">")
			b.text(o.Label)
			b.WriteString("</option>")
		}
		b.WriteString("</select>")
		return
	}
	b.WriteString(`<input class="cell-input"`)
	b.attr("value", current)
	b.attr("data-on:change", post)
	b.WriteString(">")
}

func pager(b *builder, p TableParams) {
	v := p.View
	b.WriteString(`<nav class="pager">`)
	if v.HasPrev() {
		b.printf(`<button data-on:click="@post('%s/page/%d')">Previous</button>`, p.base(), v.Page-1)
	}
	b.printf(`<span>Page %d of %d (%d rows)</span>`, v.Page, v.TotalPages, v.TotalRows)
	if v.HasNext() {
		b.printf(`<button data-on:click="@post('%s/page/%d')">Next</button>`, p.base(), v.Page+1)
	}
	b.WriteString("</nav>")
}

// cell writes one rendered value.
func cell(b *builder, v core.DisplayValue) {
	switch v.Kind {
	case core.DisplayEmpty:
		b.WriteString(`<span class="empty">`)
		b.text(v.Text)
		b.WriteString("</span>")
	case core.DisplayLink:
		b.WriteString("<a")
		b.attr("href", v.Href)
		b.WriteString(">")
		b.text(v.Text)
		b.WriteString("</a>")
	case core.DisplayImage:
		b.WriteString(`<img loading="lazy"`)
		b.attr("src", v.Src)
		b.attr("alt", v.Text)
		b.WriteString(">")
	case core.DisplayBadge:
		b.WriteString("<span")
		b.attr("class", "badge badge-"+v.Color)
		b.WriteString(">")
		b.text(strings.TrimSpace(v.Icon + " " + v.Text))
		b.WriteString("</span>")
	case core.DisplayProgress:
		b.printf(`<progress max="100" value="%s"></progress> `, strconv.FormatFloat(v.Percent, 'f', -1, 64))
		b.text(v.Text)
	case core.DisplayList:
		b.text(strings.Join(v.Items, ", "))
		if v.More > 0 {
			b.printf(` <span class="more">+%d more</span>`, v.More)
		}
	case core.DisplaySwatch:
		b.WriteString(`<span class="swatch"`)
		b.attr("style", "background:"+v.Color)
		b.WriteString("></span> ")
		b.text(v.Text)
	default:
		if v.Icon != "" {
			b.text(v.Icon + " ")
		}
		b.text(v.Text)
	}
}
