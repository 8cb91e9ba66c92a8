// Package views holds the HTML components of the dashboard. Components are
// templ.Components so handlers can render them into full pages or patch them
// into the page over SSE.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/provider"
)

// DatastarScript is the client bundle driving data-* attributes.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// Element ids patched over SSE.
const (
	NotificationsID = "notifications"
	GridID          = "grid"
	ModalID         = "modal"
	SearchID        = "search-results"
	ProgressID      = "progress"
)

// builder wraps strings.Builder with escaping helpers.
type builder struct {
	strings.Builder
}

func (b *builder) text(s string) {
	b.WriteString(templ.EscapeString(s))
}

func (b *builder) printf(format string, args ...any) {
	fmt.Fprintf(&b.Builder, format, args...)
}

// attr writes ` name="value"` with value escaped.
func (b *builder) attr(name, value string) {
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(templ.EscapeString(value))
	b.WriteString(`"`)
}

func (b *builder) child(ctx context.Context, c templ.Component) error {
	if c == nil {
		return nil
	}
	return c.Render(ctx, &b.Builder)
}

// component renders fn into a buffer and writes it in one call.
func component(fn func(ctx context.Context, b *builder) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b builder
		if err := fn(ctx, &b); err != nil {
			return err
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PageParams is the shell around every page.
type PageParams struct {
	Title         string
	Groups        []NavGroup
	Active        string
	Notifications []provider.Notification
	InitURL       string // SSE endpoint opened on load
}

// NavGroup is one sidebar section.
type NavGroup struct {
	Name   string
	Tables []core.TableInfo
}

// Page renders a full HTML document with body as content.
func Page(p PageParams, body templ.Component) templ.Component {
	return component(func(ctx context.Context, b *builder) error {
		b.WriteString("<!doctype html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString("<title>")
		b.text(p.Title)
		b.WriteString(" - Fastro</title>")
		b.printf(`<script type="module" src="%s"></script>`, DatastarScript)
		b.WriteString("</head><body")
		if p.InitURL != "" {
			b.attr("data-init", "@get('"+p.InitURL+"')")
		}
		b.WriteString(">")

		b.WriteString(`<nav class="sidebar"><a href="/" class="brand">Fastro</a>`)
		for _, g := range p.Groups {
			b.WriteString(`<section><h3>`)
			b.text(g.Name)
			b.WriteString(`</h3><ul>`)
			for _, t := range g.Tables {
				b.WriteString("<li")
				if t.Key == p.Active {
					b.WriteString(` class="active"`)
				}
				b.WriteString(`><a`)
				b.attr("href", "/tables/"+t.Key)
				b.WriteString(">")
				b.text(t.Label)
				b.WriteString("</a></li>")
			}
			b.WriteString("</ul></section>")
		}
		b.WriteString(`<a href="/audit">Audit log</a></nav>`)

		b.WriteString(`<main>`)
		if err := b.child(ctx, Notifications(p.Notifications)); err != nil {
			return err
		}
		if err := b.child(ctx, body); err != nil {
			return err
		}
		b.WriteString(`</main></body></html>`)
		return nil
	})
}

// Index lists the registered tables by group.
func Index(groups []NavGroup) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		b.WriteString(`<div id="index"><h1>Tables</h1>`)
		if len(groups) == 0 {
			b.WriteString(`<p class="empty">No tables registered</p>`)
		}
		for _, g := range groups {
			b.WriteString(`<h2>`)
			b.text(g.Name)
			b.WriteString(`</h2><div class="cards">`)
			for _, t := range g.Tables {
				b.WriteString(`<a class="card"`)
				b.attr("href", "/tables/"+t.Key)
				b.WriteString("><strong>")
				b.text(t.Label)
				b.WriteString("</strong><p>")
				b.text(t.Description)
				b.WriteString("</p></a>")
			}
			b.WriteString("</div>")
		}
		b.WriteString("</div>")
		return nil
	})
}

// ErrorAlert renders a user-facing error with its code.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		b.WriteString(`<div class="alert alert-error" role="alert"><p>`)
		b.text(message)
		b.WriteString("</p>")
		if action != "" {
			b.WriteString(`<p class="hint">`)
			b.text(action)
			b.WriteString("</p>")
		}
		b.WriteString(`<small>`)
		b.text(code)
		b.WriteString("</small></div>")
		return nil
	})
}
