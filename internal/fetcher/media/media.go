// Package media implements a single-attempt HTTP getter for media payloads.
package media

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// Config controls the media getter.
type Config struct {
	UserAgent string
	// Timeout bounds one request. Zero leaves requests unbounded.
	Timeout time.Duration
}

// Getter implements grabber.Getter with net/http.
type Getter struct {
	cfg    Config
	client *http.Client
}

// New builds a Getter with a pooled transport.
func New(cfg Config) *Getter {
	return NewWithClient(cfg, &http.Client{
		Transport: NewTransport(),
		Timeout:   cfg.Timeout,
	})
}

// NewWithClient builds a Getter around an existing client.
func NewWithClient(cfg Config, client *http.Client) *Getter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Getter{cfg: cfg, client: client}
}

// Get issues one GET. Non-2xx responses yield *grabber.StatusError.
func (g *Getter) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", grabber.ErrInvalidURL, url, err)
	}
	if g.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", g.cfg.UserAgent)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !grabber.IsSuccessStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &grabber.StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}
	return body, nil
}

// NewTransport returns the pooled transport shared by the HTTP fetchers.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
}
