package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/notblessy/coinsnap/config"
	"github.com/notblessy/coinsnap/logger"
)

// NewChrome starts a Chrome session bounded by the page-load timeout. The
// returned cancel tears down every context it created; callers must invoke
// it even when an error follows.
func NewChrome(cfg *config.Config) (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("window-size", "1920,1080"),

		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	runCtx, runCancel := context.WithTimeout(browserCtx, cfg.PageLoadTimeout)

	cancel := func() {
		runCancel()
		browserCancel()
		allocCancel()
	}

	// Launch the browser process now so a broken Chrome install surfaces
	// here instead of mid-scrape.
	if err := chromedp.Run(runCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Log.Info("browser session started", zap.Bool("headless", cfg.Headless))
	return runCtx, cancel, nil
}
