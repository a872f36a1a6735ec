package source

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// CueSource rebuilds links from the file names already in the output directory.
type CueSource struct {
	dir    string
	logger *zap.Logger
}

// Mode implements grabber.Strategy.
func (s *CueSource) Mode() grabber.Mode { return grabber.ModeSelected }

// DeriveName treats the cue as the resolved identifier.
func (s *CueSource) DeriveName(link grabber.Link) string {
	return string(link)
}

// Discover adds one cue per regular file whose name carries a dash.
func (s *CueSource) Discover(_ context.Context, sink grabber.LinkSink) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cue directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		cue, ok := grabber.CueFromFileName(entry.Name())
		if !ok {
			s.logger.Debug("Ignoring file without cue", zap.String("file", entry.Name()))
			continue
		}
		sink.Add(grabber.Link(cue))
	}
	return nil
}
