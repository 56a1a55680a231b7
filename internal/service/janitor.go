package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
)

// Janitor periodically removes expired sessions and, when a retention period
// is set, audit entries older than it.
type Janitor struct {
	store     *config.Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewJanitor creates a janitor. retentionDays <= 0 disables audit pruning.
func NewJanitor(store *config.Store, retentionDays int, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ticker.C:
			j.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep performs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) {
	now := j.now()

	if n, err := j.store.DeleteExpiredSessions(ctx, now); err != nil {
		j.logger.Warn("session cleanup failed", "error", err)
	} else if n > 0 {
		j.logger.Info("expired sessions removed", "count", n)
	}

	if j.retention <= 0 {
		return
	}
	if n, err := j.store.DeleteAuditLogsBefore(ctx, now.Add(-j.retention)); err != nil {
		j.logger.Warn("audit retention cleanup failed", "error", err)
	} else if n > 0 {
		j.logger.Info("old audit logs pruned", "count", n)
	}
}
