package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/notblessy/coinsnap/config"
	"github.com/notblessy/coinsnap/db"
	"github.com/notblessy/coinsnap/logger"
)

// CleanupWorker drops snapshots older than the retention window.
type CleanupWorker struct {
	store *db.SnapshotStore
	cfg   *config.Config
}

func NewCleanupWorker(gdb *gorm.DB, cfg *config.Config) *CleanupWorker {
	return &CleanupWorker{
		store: db.NewSnapshotStore(gdb),
		cfg:   cfg,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	// Run immediately on start
	w.purge()

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("cleanup worker shutting down")
			return
		case <-ticker.C:
			w.purge()
		}
	}
}

func (w *CleanupWorker) purge() {
	cutoff := time.Now().AddDate(0, 0, -w.cfg.RetentionDays)

	deleted, err := w.store.PurgeOlderThan(cutoff)
	if err != nil {
		logger.Log.Error("retention purge failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		logger.Log.Info("retention purge complete",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
}
