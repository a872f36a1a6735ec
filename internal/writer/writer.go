// Package writer downloads one link into the output directory.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// Files is the output directory the writer saves into.
type Files interface {
	Exists(name string) bool
	Write(name string, data []byte) (string, int64, error)
}

// Config controls naming and the optional mirror.
type Config struct {
	// APIHost serves full-size videos.
	APIHost string
	// MirrorPrefix is prepended to the file name when mirroring.
	MirrorPrefix string
}

// Writer implements grabber.Writer.
type Writer struct {
	cfg     Config
	namer   grabber.Namer
	fetcher grabber.Fetcher
	files   Files
	hasher  grabber.Hasher
	mirror  grabber.BlobStore
	clock   grabber.Clock
	logger  *zap.Logger
}

// Option customises a Writer.
type Option func(*Writer)

// WithHasher records a checksum for every saved file.
func WithHasher(h grabber.Hasher) Option {
	return func(w *Writer) { w.hasher = h }
}

// WithMirror uploads every saved file to store as well.
func WithMirror(store grabber.BlobStore) Option {
	return func(w *Writer) { w.mirror = store }
}

// WithClock overrides the clock used to time downloads.
func WithClock(c grabber.Clock) Option {
	return func(w *Writer) { w.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// New builds a Writer.
func New(cfg Config, namer grabber.Namer, fetcher grabber.Fetcher, files Files, opts ...Option) *Writer {
	if cfg.APIHost == "" {
		cfg.APIHost = grabber.DefaultAPIHost
	}
	w := &Writer{
		cfg:     cfg,
		namer:   namer,
		fetcher: fetcher,
		files:   files,
		clock:   wallClock{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write plans, deduplicates, fetches and saves link. It never panics and
// reports every failure through Outcome.Err.
func (w *Writer) Write(ctx context.Context, link grabber.Link) grabber.Outcome {
	start := w.clock.Now()
	outcome := grabber.Outcome{Link: link}
	logger := w.logger
	if worker, ok := grabber.WorkerFrom(ctx); ok {
		logger = logger.With(zap.Int("worker", worker))
	}
	finish := func() grabber.Outcome {
		outcome.Duration = w.clock.Now().Sub(start)
		return outcome
	}

	name := w.namer.DeriveName(link)
	if name == "" {
		outcome.Err = fmt.Errorf("%w: %s", grabber.ErrUnnamedLink, link)
		logger.Error("Cannot name file", zap.String("link", link.String()))
		return finish()
	}
	target := grabber.PlanDownload(link, name, w.cfg.APIHost)
	outcome.FileName = target.FileName
	outcome.URL = target.URL

	if w.files.Exists(target.FileName) {
		outcome.Skipped = true
		logger.Info("Skipping duplicate file", zap.String("file", target.FileName))
		return finish()
	}

	logger.Info("Downloading file", zap.String("file", target.FileName), zap.String("url", target.URL))
	payload, err := w.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		outcome.Err = err
		logger.Error("Download failed", zap.String("file", target.FileName), zap.String("url", target.URL), zap.Error(err))
		return finish()
	}
	if len(payload) == 0 {
		outcome.Err = fmt.Errorf("%w: %s", grabber.ErrEmptyPayload, target.URL)
		logger.Error("Download returned no data", zap.String("file", target.FileName), zap.String("url", target.URL))
		return finish()
	}

	saved, size, err := w.files.Write(target.FileName, payload)
	if err != nil {
		outcome.Err = err
		logger.Error("Error writing file", zap.String("file", target.FileName), zap.Error(err))
		return finish()
	}
	outcome.Path = saved
	outcome.Bytes = size
	outcome.Success = true

	if w.hasher != nil {
		if sum, err := w.hasher.Hash(payload); err == nil {
			outcome.Checksum = sum
		}
	}
	w.mirrorFile(ctx, logger, target.FileName, payload)
	return finish()
}

func (w *Writer) mirrorFile(ctx context.Context, logger *zap.Logger, fileName string, payload []byte) {
	if w.mirror == nil {
		return
	}
	objectPath := path.Join(strings.Trim(w.cfg.MirrorPrefix, "/"), fileName)
	uri, err := w.mirror.PutObject(ctx, objectPath, ContentType(fileName), bytes.NewReader(payload))
	if err != nil {
		logger.Warn("Mirror upload failed", zap.String("file", fileName), zap.Error(err))
		return
	}
	logger.Debug("Mirrored file", zap.String("file", fileName), zap.String("uri", uri))
}

// ContentType maps a saved file name to its MIME type.
func ContentType(fileName string) string {
	switch {
	case strings.HasSuffix(fileName, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(fileName, ".mp4"):
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
