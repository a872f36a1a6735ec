package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// ScrapeSource discovers links by scraping a live gallery page.
type ScrapeSource struct {
	urlNamer
	target  string
	scraper Scraper
}

// Mode implements grabber.Strategy.
func (s *ScrapeSource) Mode() grabber.Mode { return grabber.ModeVideo }

// Discover scrapes the target page into sink.
func (s *ScrapeSource) Discover(ctx context.Context, sink grabber.LinkSink) error {
	if strings.TrimSpace(s.target) == "" {
		return fmt.Errorf("mode %s requires a target page", grabber.ModeVideo)
	}
	if err := s.scraper.Scrape(ctx, s.target, sink); err != nil {
		return fmt.Errorf("scrape %s: %w", s.target, err)
	}
	return nil
}
