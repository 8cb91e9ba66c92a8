package views

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/fastro/internal/core"
)

// AuditParams is one page of the audit log.
type AuditParams struct {
	Entries    []core.AuditEntry
	TotalCount int64
	Page       int
	TotalPages int
	Table      string
	Action     string
	Tables     []string
}

// AuditLog renders the audit log table with its filters.
func AuditLog(p AuditParams) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		b.WriteString(`<section id="audit"><h1>Audit log</h1>`)
		b.WriteString(`<form class="filters" method="get" action="/audit"><select name="table"><option value="">All tables</option>`)
		for _, t := range p.Tables {
			b.WriteString("<option")
			b.attr("value", t)
			if t == p.Table {
				b.WriteString(" selected")
			}
			b.WriteString(">")
			b.text(t)
			b.WriteString("</option>")
		}
		b.WriteString(`</select><select name="action"><option value="">All actions</option>`)
		for _, a := range []core.AuditAction{
			core.ActionRowCreate, core.ActionRowUpdate, core.ActionCellEdit,
			core.ActionRowDelete, core.ActionBulkDelete, core.ActionImport, core.ActionUpload,
		} {
			b.WriteString("<option")
			b.attr("value", string(a))
			if string(a) == p.Action {
				b.WriteString(" selected")
			}
			b.WriteString(">")
			b.text(string(a))
			b.WriteString("</option>")
		}
		b.WriteString(`</select><button type="submit">Filter</button></form>`)

		if len(p.Entries) == 0 {
			b.WriteString(`<p class="empty">No audit entries</p></section>`)
			return nil
		}

		b.WriteString(`<table><thead><tr><th>When</th><th>Action</th><th>Severity</th><th>Table</th><th>Row</th><th>Change</th><th>IP</th></tr></thead><tbody>`)
		for _, e := range p.Entries {
			b.WriteString("<tr><td")
			b.attr("title", e.CreatedAt.Format("2006-01-02 15:04:05"))
			b.WriteString(">")
			b.text(humanize.Time(e.CreatedAt))
			b.WriteString("</td><td>")
			b.text(string(e.Action))
			b.WriteString("</td><td")
			b.attr("class", "severity-"+string(e.Severity))
			b.WriteString(">")
			b.text(string(e.Severity))
			b.WriteString("</td><td>")
			b.text(e.TableKey)
			b.WriteString("</td><td>")
			b.text(e.RowKey)
			if e.RowsAffected > 1 {
				b.text(" (" + strconv.Itoa(e.RowsAffected) + " rows)")
			}
			b.WriteString("</td><td>")
			if e.ColumnName != "" {
				b.text(e.ColumnName + ": " + e.OldValue + " → " + e.NewValue)
			} else {
				b.text(e.Reason)
			}
			b.WriteString("</td><td>")
			b.text(e.IPAddress)
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table>")

		if p.TotalPages > 1 {
			b.WriteString(`<nav class="pager">`)
			q := url.Values{}
			if p.Table != "" {
				q.Set("table", p.Table)
			}
			if p.Action != "" {
				q.Set("action", p.Action)
			}
			if p.Page > 1 {
				q.Set("page", strconv.Itoa(p.Page-1))
				b.WriteString("<a")
				b.attr("href", "/audit?"+q.Encode())
				b.WriteString(">Previous</a>")
			}
			b.printf(`<span>Page %d of %d (%s entries)</span>`, p.Page, p.TotalPages, humanize.Comma(p.TotalCount))
			if p.Page < p.TotalPages {
				q.Set("page", strconv.Itoa(p.Page+1))
				b.WriteString("<a")
				b.attr("href", "/audit?"+q.Encode())
				b.WriteString(">Next</a>")
			}
			b.WriteString("</nav>")
		}
		b.WriteString("</section>")
		return nil
	})
}
