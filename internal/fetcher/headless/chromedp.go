// Package headless drives a Chrome instance to scrape lazily loaded galleries.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

const (
	// GallerySelector marks the rendered gallery container.
	GallerySelector = ".gifList.userGifList"
	// TileSelector matches video tiles inside the gallery.
	TileSelector = ".tile.isVideo"
	// ThumbnailSelector matches the preview image inside a tile.
	ThumbnailSelector = ".thumbnail"

	defaultScrollSettle = 750 * time.Millisecond
)

// collectScript marks every unseen tile, scrolls it into view and returns the
// thumbnail sources found on this pass.
var collectScript = fmt.Sprintf(`(() => {
  const srcs = [];
  let tiles = 0;
  document.querySelectorAll(%q).forEach((tile) => {
    if (tile.hasAttribute("data-grabbed")) { return; }
    tile.setAttribute("data-grabbed", "1");
    tiles++;
    tile.scrollIntoView(true);
    const thumb = tile.querySelector(%q);
    const src = thumb ? thumb.src : "";
    if (src) { srcs.push(src); }
  });
  return {tiles: tiles, srcs: srcs};
})()`, TileSelector, ThumbnailSelector)

// Config controls the headless scraper.
type Config struct {
	UserAgent string
	// Headless runs Chrome without a window. False shows the browser.
	Headless bool
	// RenderTimeout bounds the wait for the gallery to appear.
	RenderTimeout time.Duration
	// ScrollSettle is the pause between passes so lazy tiles can load.
	ScrollSettle time.Duration
}

// Scraper discovers thumbnail links with chromedp.
type Scraper struct {
	cfg         Config
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

type passResult struct {
	Tiles int      `json:"tiles"`
	Srcs  []string `json:"srcs"`
}

// NewChromedp creates a scraper backed by a fresh Chrome allocator.
func NewChromedp(cfg Config, logger *zap.Logger) *Scraper {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return &Scraper{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

func (c Config) withDefaults() Config {
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = grabber.RenderTimeout
	}
	if c.ScrollSettle <= 0 {
		c.ScrollSettle = defaultScrollSettle
	}
	return c
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return append(opts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
}

// Close shuts down the browser.
func (s *Scraper) Close() {
	s.allocCancel()
}

// Scrape opens target and feeds every thumbnail link into sink until a pass
// finds no new tiles.
func (s *Scraper) Scrape(ctx context.Context, target string, sink grabber.LinkSink) error {
	if strings.TrimSpace(target) == "" {
		return errors.New("scrape target is empty")
	}
	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	if err := chromedp.Run(taskCtx, s.networkSetupAction(), chromedp.Navigate(target)); err != nil {
		return fmt.Errorf("chromedp navigate: %w", err)
	}
	s.waitForGallery(taskCtx)

	for pass := 1; ; pass++ {
		var result passResult
		if err := chromedp.Run(taskCtx, chromedp.Evaluate(collectScript, &result)); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("scrape canceled: %w", ctx.Err())
			}
			return fmt.Errorf("chromedp collect: %w", err)
		}
		added := addAll(sink, result.Srcs)
		s.logger.Debug("Scrape pass",
			zap.Int("pass", pass),
			zap.Int("tiles", result.Tiles),
			zap.Int("new_links", added),
		)
		if result.Tiles == 0 {
			return nil
		}
		if err := sleepWithContext(ctx, s.cfg.ScrollSettle); err != nil {
			return fmt.Errorf("scrape canceled: %w", err)
		}
	}
}

// waitForGallery blocks until the gallery is visible or RenderTimeout passes.
// A timeout is not an error: whatever rendered gets scraped.
func (s *Scraper) waitForGallery(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(GallerySelector, chromedp.ByQuery)); err != nil {
		s.logger.Debug("Gallery not visible before render timeout", zap.Error(err))
	}
}

func (s *Scraper) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func addAll(sink grabber.LinkSink, srcs []string) int {
	added := 0
	for _, src := range srcs {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if sink.Add(grabber.Link(src)) {
			added++
		}
	}
	return added
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
