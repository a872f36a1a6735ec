package grabber

import (
	"context"
	"io"
	"time"
)

// Getter performs a single GET and returns the response body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Fetcher returns the body for a URL, retrying transient failures.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LinkSink receives discovered links. Add reports whether the link was new.
type LinkSink interface {
	Add(link Link) bool
}

// Namer derives the file identifier for a link.
type Namer interface {
	DeriveName(link Link) string
}

// Strategy discovers links for one Mode and names the files they produce.
type Strategy interface {
	Namer
	Mode() Mode
	Discover(ctx context.Context, sink LinkSink) error
}

// Writer downloads one link to disk.
type Writer interface {
	Write(ctx context.Context, link Link) Outcome
}

// BlobStore writes artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes payload digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
