// Package collyfetcher implements grabber.Getter for HTML pages using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/gallery-grabber/internal/fetcher/media"
	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher retrieves page bodies with a Colly collector. Media payloads go
// through the media package instead since colly caps body size.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type pageResult struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(media.NewTransport())
	c.ParseHTTPErrorResponse = true
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Get visits url once and returns the response body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var result pageResult
	collector := f.buildCollector(&result)
	if err := f.runCollector(ctx, collector, url, &result); err != nil {
		return nil, err
	}
	if !grabber.IsSuccessStatus(result.status) {
		return nil, &grabber.StatusError{URL: url, StatusCode: result.status}
	}
	return result.body, nil
}

func (f *Fetcher) buildCollector(result *pageResult) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.ParseHTTPErrorResponse = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)
	f.configureCollectorHooks(collector, result)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *pageResult) {
	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, result *pageResult) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			if result.status != 0 && result.status != http.StatusOK {
				return &grabber.StatusError{URL: url, StatusCode: result.status}
			}
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if result.err != nil {
			return fmt.Errorf("colly response failed: %w", result.err)
		}
		return nil
	}
}
