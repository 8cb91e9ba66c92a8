package backend

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls the audit retention job.
type RetentionConfig struct {
	Retention     time.Duration // Age after which entries are purged (default 90 days)
	CheckInterval time.Duration // How often to run (default 24h)
}

// Purger removes audit entries older than a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// StartRetention purges old audit entries immediately and then every
// CheckInterval until ctx is cancelled. Failures are logged, not fatal.
func StartRetention(ctx context.Context, p Purger, cfg RetentionConfig) {
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}
	slog.Info("audit retention started",
		"retention", cfg.Retention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	runRetention(ctx, p, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit retention stopped")
			return
		case <-ticker.C:
			runRetention(ctx, p, cfg.Retention)
		}
	}
}

func runRetention(ctx context.Context, p Purger, retention time.Duration) {
	start := time.Now()
	purged, err := p.Purge(ctx, start.Add(-retention))
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}
	slog.Info("purged audit entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
