package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

const pagePrefix = "https://www."

// TextFileSource resolves the watch pages listed in <dir>/input.txt.
type TextFileSource struct {
	urlNamer
	dir      string
	resolver Resolver
	logger   *zap.Logger
}

// Mode implements grabber.Strategy.
func (s *TextFileSource) Mode() grabber.Mode { return grabber.ModeFile }

// Discover resolves every listed page. Pages that cannot be resolved are
// logged and skipped.
func (s *TextFileSource) Discover(ctx context.Context, sink grabber.LinkSink) error {
	path := filepath.Join(s.dir, InputFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read page list: %w", err)
	}
	for _, page := range ParsePageLinks(string(raw)) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("resolve pages: %w", err)
		}
		s.logger.Info("Capturing true link", zap.String("page", page))
		media, err := s.resolver.Resolve(ctx, page)
		if err != nil {
			s.logger.Warn("Skipping unresolvable page", zap.String("page", page), zap.Error(err))
			continue
		}
		sink.Add(grabber.Link(media))
	}
	return nil
}

// ParsePageLinks splits text on the page prefix. Text before the first prefix
// is discarded, pieces are re-prefixed and trimmed.
func ParsePageLinks(text string) []string {
	pieces := strings.Split(text, pagePrefix)
	if len(pieces) < 2 {
		return nil
	}
	pages := make([]string, 0, len(pieces)-1)
	for _, piece := range pieces[1:] {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		pages = append(pages, pagePrefix+piece)
	}
	return pages
}
