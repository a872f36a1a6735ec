// Package resolver turns watch-page URLs into direct media URLs by reading
// the page's Open Graph metadata.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// ErrNoMedia is returned when a page carries neither og:video nor og:image:url.
var ErrNoMedia = errors.New("no media metadata on page")

// metaProperties are consulted in order; the first non-empty value wins.
var metaProperties = []string{"og:video", "og:image:url"}

// MetaResolver fetches pages and extracts their media URL.
type MetaResolver struct {
	fetcher grabber.Fetcher
}

// New builds a MetaResolver around fetcher.
func New(fetcher grabber.Fetcher) *MetaResolver {
	return &MetaResolver{fetcher: fetcher}
}

// Resolve fetches pageURL and returns the media URL it advertises.
func (r *MetaResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	if r.fetcher == nil {
		return "", errors.New("resolver has no fetcher")
	}
	body, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	media, err := ExtractMedia(body)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", pageURL, err)
	}
	return media, nil
}

// ExtractMedia returns the og:video content of html, falling back to og:image:url.
func ExtractMedia(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	for _, property := range metaProperties {
		selector := fmt.Sprintf(`meta[property=%q]`, property)
		content, ok := doc.Find(selector).First().Attr("content")
		if content = strings.TrimSpace(content); ok && content != "" {
			return content, nil
		}
	}
	return "", ErrNoMedia
}
