package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the notification channel the change trigger publishes on.
const ChangeChannel = "table_changes"

// Change is one notification from the change trigger.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
}

// ParseChange decodes a notification payload. A bare table name is accepted.
func ParseChange(payload string) Change {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil || c.Table == "" {
		return Change{Table: payload}
	}
	return c
}

const (
	minListenBackoff = time.Second
	maxListenBackoff = 30 * time.Second
)

// listener is the part of a dedicated connection the change feed uses.
type listener interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Listen takes one connection out of pool, LISTENs on ChangeChannel and calls
// fn for every notification until ctx is cancelled. The connection is closed
// rather than released, so a LISTENing session never goes back to the pool.
// Lost connections are replaced after a backoff that resets once a
// notification has been delivered.
func Listen(ctx context.Context, pool *pgxpool.Pool, fn func(Change)) error {
	f := &feed{
		connect: func(ctx context.Context) (listener, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, fmt.Errorf("acquire: %w", err)
			}
			return conn.Hijack(), nil
		},
		fn:    fn,
		sleep: sleepCtx,
	}
	return f.run(ctx)
}

type feed struct {
	connect func(context.Context) (listener, error)
	fn      func(Change)
	sleep   func(context.Context, time.Duration) bool
}

func (f *feed) run(ctx context.Context) error {
	backoff := minListenBackoff
	for {
		delivered, err := f.once(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if delivered {
			backoff = minListenBackoff
		}
		slog.Warn("change feed interrupted", "error", err, "retry_in", backoff.String())

		if !f.sleep(ctx, backoff) {
			return nil
		}
		backoff = min(backoff*2, maxListenBackoff)
	}
}

// once runs one connection until it fails and reports whether any
// notification got through.
func (f *feed) once(ctx context.Context) (delivered bool, err error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return false, fmt.Errorf("listen: %w", err)
	}
	slog.Info("change feed listening", "channel", ChangeChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return delivered, err
		}
		delivered = true
		f.fn(ParseChange(n.Payload))
	}
}

// sleepCtx waits for d and reports false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
