// Package source holds the link discovery strategies, one per grabber.Mode.
package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// InputFileName is the page list read in text-file mode.
const InputFileName = "input.txt"

// Scraper feeds the thumbnail links found on a gallery page into sink.
type Scraper interface {
	Scrape(ctx context.Context, target string, sink grabber.LinkSink) error
}

// Resolver maps a watch page to its direct media URL.
type Resolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// Deps carries the collaborators a strategy may need.
type Deps struct {
	// Target is the gallery page for live scraping.
	Target string
	// Dir is the run's output directory.
	Dir      string
	Scraper  Scraper
	Resolver Resolver
	Logger   *zap.Logger
}

// New returns the strategy for mode.
func New(mode grabber.Mode, deps Deps) (grabber.Strategy, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case grabber.ModeVideo:
		if deps.Scraper == nil {
			return nil, fmt.Errorf("mode %s requires a scraper", mode)
		}
		return &ScrapeSource{target: deps.Target, scraper: deps.Scraper}, nil
	case grabber.ModeFile:
		if deps.Resolver == nil {
			return nil, fmt.Errorf("mode %s requires a resolver", mode)
		}
		return &TextFileSource{dir: deps.Dir, resolver: deps.Resolver, logger: logger.Named("textfile")}, nil
	case grabber.ModeSelected:
		return &CueSource{dir: deps.Dir, logger: logger.Named("cues")}, nil
	case grabber.ModePreview:
		return nil, fmt.Errorf("%w: %s", grabber.ErrUnsupportedMode, mode)
	default:
		return nil, fmt.Errorf("%w: %q", grabber.ErrInvalidMode, string(mode))
	}
}

// urlNamer derives names from media URLs.
type urlNamer struct{}

func (urlNamer) DeriveName(link grabber.Link) string {
	return grabber.ExtractName(string(link))
}
