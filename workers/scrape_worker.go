package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/notblessy/coinsnap/browser"
	"github.com/notblessy/coinsnap/config"
	"github.com/notblessy/coinsnap/db"
	"github.com/notblessy/coinsnap/logger"
	"github.com/notblessy/coinsnap/scraper"
)

// ScrapeWorker runs the scrape-then-persist pass on a fixed interval. Each
// pass opens its own browser session so a wedged renderer cannot poison
// later passes.
type ScrapeWorker struct {
	store *db.SnapshotStore
	cfg   *config.Config
}

func NewScrapeWorker(gdb *gorm.DB, cfg *config.Config) *ScrapeWorker {
	return &ScrapeWorker{
		store: db.NewSnapshotStore(gdb),
		cfg:   cfg,
	}
}

func (w *ScrapeWorker) Start(ctx context.Context) {
	w.RunPass()

	ticker := time.NewTicker(w.cfg.ScrapeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("scrape worker shutting down")
			return
		case <-ticker.C:
			w.RunPass()
		}
	}
}

// RunPass executes one full scrape pass. Errors are logged and returned; in
// service mode the caller ignores them and the next tick tries again.
func (w *ScrapeWorker) RunPass() error {
	start := time.Now()

	browserCtx, cancel, err := browser.NewChrome(w.cfg)
	if err != nil {
		logger.Log.Error("browser start failed", zap.Error(err))
		return err
	}
	defer cancel()

	snapshots, err := scraper.New(browserCtx, w.cfg).Run(w.cfg.TargetURL)
	if err != nil {
		logger.Log.Error("scrape failed", zap.Error(err))
		return err
	}

	if err := w.store.SaveAll(snapshots, time.Now().UTC()); err != nil {
		logger.Log.Error("persist failed",
			zap.Error(err),
			zap.Int("rows", len(snapshots)))
		return err
	}

	logger.Log.Info("scrape pass complete",
		zap.Int("rows", len(snapshots)),
		zap.Duration("took", time.Since(start)))
	return nil
}
