package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/surveillance-api/internal/repository"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
)

// AuditRetentionWorker purges payment and alert audit entries past the
// retention window.
type AuditRetentionWorker struct {
	repo          repository.AuditRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
	now           func() time.Time
}

func NewAuditRetentionWorker(repo repository.AuditRepository, retentionDays int, interval time.Duration, log *logger.Logger) *AuditRetentionWorker {
	return &AuditRetentionWorker{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        log,
		now:           time.Now,
	}
}

// Start purges once and then on every tick until ctx is done.
func (w *AuditRetentionWorker) Start(ctx context.Context) {
	if w.retentionDays <= 0 || w.interval <= 0 {
		return
	}

	w.purgeLogged(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.purgeLogged(ctx)
		}
	}
}

// PurgeOnce deletes entries older than the retention window.
func (w *AuditRetentionWorker) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().UTC().AddDate(0, 0, -w.retentionDays)
	return w.repo.DeleteBefore(ctx, cutoff)
}

func (w *AuditRetentionWorker) purgeLogged(ctx context.Context) {
	deleted, err := w.PurgeOnce(ctx)
	if err != nil {
		w.logger.Error(err, "Audit log purge failed")
		return
	}
	if deleted > 0 {
		w.logger.Info("Purged audit logs", "deleted", deleted, "retention_days", w.retentionDays)
	}
}
