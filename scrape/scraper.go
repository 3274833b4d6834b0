package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/poiesic/noesis/core"
)

const (
	// DefaultConcurrency matches a politeness budget of four in-flight
	// requests.
	DefaultConcurrency = 4

	// DefaultRequestInterval is the minimum spacing between request
	// starts.
	DefaultRequestInterval = time.Second
)

// Result is the outcome for a single URL in a batch. Failures are
// isolated per URL: Err is set and Page is nil.
type Result struct {
	URL  string
	Page *Page
	Err  error
}

// Scraper fetches batches of URLs with bounded concurrency and a
// politeness rate limit.
type Scraper struct {
	fetcher *Fetcher
	pool    *ants.Pool
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Scraper.
type Option func(*scraperConfig)

type scraperConfig struct {
	concurrency    int
	interval       time.Duration
	timeout        time.Duration
	allowedDomains []string
	allowPrivate   bool
	logger         *slog.Logger
}

// WithConcurrency sets the worker pool size.
// Default is DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(c *scraperConfig) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}

// WithRequestInterval sets the minimum spacing between request starts.
// Zero disables rate limiting.
func WithRequestInterval(d time.Duration) Option {
	return func(c *scraperConfig) {
		c.interval = d
	}
}

// WithFetchTimeout bounds each individual fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *scraperConfig) {
		c.timeout = d
	}
}

// WithAllowedDomains restricts scraping to the given registrable
// domains and their subdomains.
func WithAllowedDomains(domains []string) Option {
	return func(c *scraperConfig) {
		c.allowedDomains = domains
	}
}

// WithPrivateNetworkAllowed disables the private-address check.
// Intended for intranet deployments and tests against local servers.
func WithPrivateNetworkAllowed() Option {
	return func(c *scraperConfig) {
		c.allowPrivate = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *scraperConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Scraper.
func New(opts ...Option) (*Scraper, error) {
	cfg := &scraperConfig{
		concurrency: DefaultConcurrency,
		interval:    DefaultRequestInterval,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := ants.NewPool(cfg.concurrency)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.interval), 1)
	}

	fetcher := NewFetcher(cfg.timeout, cfg.allowedDomains)
	fetcher.AllowPrivate = cfg.allowPrivate

	return &Scraper{
		fetcher: fetcher,
		pool:    pool,
		limiter: limiter,
		logger:  cfg.logger,
	}, nil
}

// Close releases the worker pool.
func (s *Scraper) Close() {
	s.pool.Release()
}

// ScrapeURL fetches and extracts a single page.
func (s *Scraper) ScrapeURL(ctx context.Context, rawURL string) (*Page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, finalURL, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return ExtractPage(finalURL, body)
}

// ScrapeURLs fetches a batch of URLs through the worker pool. Results
// arrive in input order; a failed URL contributes a Result with Err
// set and never aborts the batch.
func (s *Scraper) ScrapeURLs(ctx context.Context, urls []string) []*Result {
	results := make([]*Result, len(urls))

	var wg sync.WaitGroup
	for i, rawURL := range urls {
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			page, err := s.ScrapeURL(ctx, rawURL)
			if err != nil {
				s.logger.Warn("scrape failed", "url", rawURL, "err", err)
				results[i] = &Result{URL: rawURL, Err: err}
				return
			}
			results[i] = &Result{URL: rawURL, Page: page}
		})
		if submitErr != nil {
			wg.Done()
			results[i] = &Result{URL: rawURL, Err: submitErr}
		}
	}
	wg.Wait()

	return results
}

// DocumentID derives a stable knowledge-base id for a scraped URL.
func DocumentID(rawURL string) string {
	return fmt.Sprintf("scraped_%d", core.ContentID(rawURL)%1_000_000_000)
}
