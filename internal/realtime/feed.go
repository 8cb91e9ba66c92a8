package realtime

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Invalidator drops cached queries by key prefix.
type Invalidator interface {
	InvalidatePrefix(prefix ...string) int
}

// Feed applies change notifications: the table's cached queries are
// invalidated and its listeners pinged to refetch.
//
// The change trigger fires once per statement on every watched table, so
// each write costs every open view of that table one reload. This is fine
// for admin tables and does not scale to high-churn ones.
type Feed struct {
	cache    Invalidator
	hub      *Hub
	observer func(table string)
}

// NewFeed creates a feed. observer may be nil.
func NewFeed(cache Invalidator, hub *Hub, observer func(table string)) *Feed {
	return &Feed{cache: cache, hub: hub, observer: observer}
}

// Handle applies one change.
func (f *Feed) Handle(c backend.Change) {
	if c.Table == "" {
		return
	}
	n := f.cache.InvalidatePrefix(c.Table)
	f.hub.Broadcast(c.Table)
	if f.observer != nil {
		f.observer(c.Table)
	}
	slog.Debug("table changed", "table", c.Table, "op", c.Op, "entries_invalidated", n)
}

// Run listens for change notifications until ctx is cancelled.
func (f *Feed) Run(ctx context.Context, pool *pgxpool.Pool) error {
	return backend.Listen(ctx, pool, f.Handle)
}
