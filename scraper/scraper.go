package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/notblessy/coinsnap/config"
	"github.com/notblessy/coinsnap/logger"
	"github.com/notblessy/coinsnap/models"
)

// listingTableSelector matches the lazily hydrated listing table.
const listingTableSelector = "table.cmc-table"

// ErrListingUnavailable reports that the listing table never appeared within
// the configured wait. The browser session is still usable afterwards.
var ErrListingUnavailable = errors.New("listing table not found")

type Scraper struct {
	ctx context.Context
	cfg *config.Config
}

// New wraps an already-started browser context.
func New(ctx context.Context, cfg *config.Config) *Scraper {
	return &Scraper{ctx: ctx, cfg: cfg}
}

// Run executes one scrape pass: navigate, wait for the table, scroll until
// the page stops growing, then parse the rendered document into snapshots.
func (s *Scraper) Run(url string) ([]models.CryptoSnapshot, error) {
	logger.Log.Info("navigating", zap.String("url", url))
	if err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if err := s.waitForListing(); err != nil {
		return nil, err
	}

	if err := s.scrollToLoadRows(); err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	var pageHTML string
	if err := chromedp.Run(s.ctx,
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("capture html: %w", err)
	}

	snapshots, skipped := ParseListing(strings.NewReader(pageHTML))
	if skipped > 0 {
		logger.Log.Warn("skipped malformed rows", zap.Int("skipped", skipped))
	}
	if len(snapshots) == 0 {
		return nil, ErrListingUnavailable
	}

	logger.Log.Info("scraped listing", zap.Int("rows", len(snapshots)))
	return snapshots, nil
}

func (s *Scraper) waitForListing() error {
	waitCtx, cancel := context.WithTimeout(s.ctx, s.cfg.ElementWaitTimeout)
	defer cancel()

	err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(listingTableSelector, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrListingUnavailable
		}
		return fmt.Errorf("wait for listing: %w", err)
	}
	return nil
}

// scrollToLoadRows pages through the document in fixed steps so lazily
// rendered rows hydrate, stopping once the scroll height stops growing or
// the attempt limit is reached.
func (s *Scraper) scrollToLoadRows() error {
	var lastHeight int
	if err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`document.body.scrollHeight`, &lastHeight),
	); err != nil {
		return err
	}

	for attempt := 1; attempt <= s.cfg.MaxScrollAttempts; attempt++ {
		for pos := 0; pos < lastHeight; pos += s.cfg.ScrollStep {
			if err := chromedp.Run(s.ctx,
				chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, pos), nil),
				chromedp.Sleep(s.cfg.ScrollPause),
			); err != nil {
				return err
			}
		}

		var newHeight int
		if err := chromedp.Run(s.ctx,
			chromedp.Sleep(1*time.Second),
			chromedp.Evaluate(`document.body.scrollHeight`, &newHeight),
		); err != nil {
			return err
		}

		if newHeight == lastHeight {
			break
		}
		lastHeight = newHeight
		logger.Log.Debug("scroll pass",
			zap.Int("attempt", attempt),
			zap.Int("height", newHeight))
	}
	return nil
}
