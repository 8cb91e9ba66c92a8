package provider

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/google/uuid"
)

// Kind is the kind of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindAction  Kind = "action"
)

// DefaultNotificationTTL is how long a notification stays on screen.
const DefaultNotificationTTL = 5 * time.Second

// Notification is a transient message shown to the user.
type Notification struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	Title       string        `json:"title"`
	Body        string        `json:"body,omitempty"`
	Code        string        `json:"code,omitempty"`
	ActionLabel string        `json:"actionLabel,omitempty"`
	ActionURL   string        `json:"actionUrl,omitempty"`
	TTL         time.Duration `json:"ttl"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Expired reports whether the notification should have been dismissed by now.
func (n Notification) Expired(now time.Time) bool {
	return n.TTL > 0 && now.After(n.CreatedAt.Add(n.TTL))
}

func newNotification(kind Kind, title, body string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		TTL:       DefaultNotificationTTL,
		CreatedAt: time.Now(),
	}
}

// Success builds a success notification.
func Success(title, body string) Notification {
	return newNotification(KindSuccess, title, body)
}

// Info builds an informational notification.
func Info(title, body string) Notification {
	return newNotification(KindInfo, title, body)
}

// ActionNotice builds a notification carrying a link.
func ActionNotice(title, body, label, url string) Notification {
	n := newNotification(KindAction, title, body)
	n.ActionLabel = label
	n.ActionURL = url
	n.TTL = 0
	return n
}

// Failure builds an error notification explaining err to the user.
func Failure(title string, err error) Notification {
	msg := core.MapError(err)
	body := msg.Message
	if msg.Action != "" {
		body += ". " + msg.Action
	}
	n := newNotification(KindError, title, body)
	n.Code = msg.Code
	return n
}

// Inbox collects the notifications raised while serving one request.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Add appends n. A nil inbox discards it.
func (i *Inbox) Add(n Notification) {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.items = append(i.items, n)
	i.mu.Unlock()
}

// Drain returns and removes every collected notification.
func (i *Inbox) Drain() []Notification {
	if i == nil {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	return out
}

type inboxKey struct{}

// WithInbox attaches inbox to ctx.
func WithInbox(ctx context.Context, inbox *Inbox) context.Context {
	return context.WithValue(ctx, inboxKey{}, inbox)
}

// InboxFrom returns the inbox attached to ctx, or nil.
func InboxFrom(ctx context.Context) *Inbox {
	inbox, _ := ctx.Value(inboxKey{}).(*Inbox)
	return inbox
}

// Notify delivers n to the inbox attached to ctx.
func Notify(ctx context.Context, n Notification) {
	InboxFrom(ctx).Add(n)
}
