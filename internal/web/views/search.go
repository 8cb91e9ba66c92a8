package views

import (
	"context"
	"net/url"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/fastro/internal/core"
)

// SearchParams is one delivered search result.
type SearchParams struct {
	Table   string
	Term    string
	Columns []string // Columns shown per hit
	Rows    []core.Record
	Err     string
}

// SearchResults renders the search dropdown. A blank term renders nothing.
func SearchResults(p SearchParams) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		b.printf(`<div id="%s" class="search-results">`, SearchID)
		defer b.WriteString("</div>")

		if p.Term == "" {
			return nil
		}
		if p.Err != "" {
			b.WriteString(`<p class="error">`)
			b.text(p.Err)
			b.WriteString("</p>")
			return nil
		}
		if len(p.Rows) == 0 {
			b.WriteString(`<p class="empty">No matches for "`)
			b.text(p.Term)
			b.WriteString(`"</p>`)
			return nil
		}

		b.WriteString("<ul>")
		for _, r := range p.Rows {
			id := r.IdentityKey()
			b.WriteString("<li")
			b.attr("data-on:click", "@get('/tables/"+url.PathEscape(p.Table)+"/rows/"+url.PathEscape(id)+"/preview')")
			b.WriteString(">")
			for i, c := range p.Columns {
				if i > 0 {
					b.WriteString(` <span class="sep">·</span> `)
				}
				b.text(core.ToText(r.Value(c)))
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
		return nil
	})
}
