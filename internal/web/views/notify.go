package views

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/fastro/internal/provider"
)

// Notifications renders the toast stack. Transient toasts remove themselves
// after their TTL.
func Notifications(list []provider.Notification) templ.Component {
	return component(func(ctx context.Context, b *builder) error {
		b.printf(`<div id="%s" class="toasts" aria-live="polite">`, NotificationsID)
		if err := b.child(ctx, Toasts(list)); err != nil {
			return err
		}
		b.WriteString("</div>")
		return nil
	})
}

// Toasts renders notifications without their container, for appending to an
// existing stack.
func Toasts(list []provider.Notification) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		for _, n := range list {
			b.WriteString(`<div`)
			b.attr("id", "toast-"+n.ID)
			b.attr("class", "toast toast-"+string(n.Kind))
			if n.TTL > 0 {
				ms := strconv.FormatInt(n.TTL.Milliseconds(), 10)
				b.attr("data-init", "setTimeout(() => el.remove(), "+ms+")")
			}
			b.WriteString("><strong>")
			b.text(n.Title)
			b.WriteString("</strong>")
			if n.Body != "" {
				b.WriteString("<p>")
				b.text(n.Body)
				b.WriteString("</p>")
			}
			if n.ActionURL != "" {
				b.WriteString(`<a target="_blank" rel="noopener"`)
				b.attr("href", n.ActionURL)
				b.WriteString(">")
				b.text(n.ActionLabel)
				b.WriteString("</a>")
			}
			if n.Code != "" {
				b.WriteString("<small>")
				b.text(n.Code)
				b.WriteString("</small>")
			}
			b.WriteString(`<button class="dismiss" data-on:click="el.parentElement.remove()">×</button></div>`)
		}
		return nil
	})
}
