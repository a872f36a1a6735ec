// Package ratelimit throttles outgoing requests with one token bucket per host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// Config holds rate limiter configuration.
type Config struct {
	// RPS is the steady request rate per host; <= 0 disables limiting.
	RPS   float64
	Burst int
}

// Limiter manages per-host buckets.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until rawURL's host has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if err := l.bucket(hostOf(rawURL)).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (l *Limiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Getter waits on a Limiter before every attempt of the wrapped Getter.
type Getter struct {
	next    grabber.Getter
	limiter *Limiter
}

// Wrap returns next throttled by limiter.
func Wrap(next grabber.Getter, limiter *Limiter) *Getter {
	return &Getter{next: next, limiter: limiter}
}

// Get implements grabber.Getter.
func (g *Getter) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := g.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}
	body, err := g.next.Get(ctx, rawURL)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass the getter's error through for retry classification
	}
	return body, nil
}
