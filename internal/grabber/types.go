// Package grabber defines the core types shared by the download pipeline.
package grabber

import (
	"time"
)

// Process-wide defaults for the download pipeline.
const (
	// DefaultThreads caps how many batches are downloaded concurrently.
	DefaultThreads = 10
	// MaxRequestRetries is the number of attempts made per URL.
	MaxRequestRetries = 5
	// RenderTimeout bounds how long the scraper waits for the gallery to render.
	RenderTimeout = 10 * time.Second
	// DefaultAPIHost serves the full-size media files.
	DefaultAPIHost = "api.redgifs.com"
)

// Link is a discovered media reference. Depending on the mode it is a direct
// media URL, an image URL, or a bare content identifier.
type Link string

// String returns the raw link value.
func (l Link) String() string {
	return string(l)
}

// Target is the download plan derived from a Link.
type Target struct {
	// Name is the derived identifier without extension.
	Name string
	// FileName is Name plus the media extension.
	FileName string
	// URL is the address the payload is fetched from.
	URL string
}

// Outcome is the per-link result of a download attempt.
type Outcome struct {
	Link     Link
	FileName string
	Path     string
	URL      string
	Success  bool
	// Skipped is set when the output path already existed.
	Skipped  bool
	Bytes    int64
	Checksum string
	Duration time.Duration
	Err      error
}
