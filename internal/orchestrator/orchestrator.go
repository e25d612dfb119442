package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/scraper"
)

// Option customizes an Orchestrator.
type Option func(*options)

type options struct {
	adapters    []scraper.Scraper
	verifier    scraper.Verifier
	search      scraper.SearchOptions
	searchPause func() time.Duration
}

// WithScrapers replaces the default site adapters.
func WithScrapers(s ...scraper.Scraper) Option {
	return func(o *options) { o.adapters = s }
}

// WithVerifier sets the manual-verification hook for browser adapters.
func WithVerifier(v scraper.Verifier) Option {
	return func(o *options) { o.verifier = v }
}

// WithSearchOptions overrides search crawling options.
func WithSearchOptions(so scraper.SearchOptions) Option {
	return func(o *options) { o.search = so }
}

// WithSearchPause sets the wait between detail scrapes in ScrapeSearch.
func WithSearchPause(f func() time.Duration) Option {
	return func(o *options) { o.searchPause = f }
}

// DefaultScrapers builds the production adapters for cfg. Browser adapters
// share one Chromium whose user agent and reading behaviour come from anti.
func DefaultScrapers(cfg Config, v scraper.Verifier, anti *AntiDetection) []scraper.Scraper {
	copts := engine.ClientOptions{Timeout: cfg.Timeout}
	if cfg.UseProxy && len(cfg.ProxyPool) > 0 {
		copts.ProxyURL = cfg.ProxyPool[rand.IntN(len(cfg.ProxyPool))]
	}
	doer := engine.NewDoer(copts)

	session := scraper.NewBrowserSession(scraper.BrowserOptions{
		Headless:    cfg.Headless,
		UserDataDir: cfg.UserDataDir,
		Bin:         cfg.BrowserBin,
		UserAgent:   anti.UserAgent(),
	}, scraper.RodLauncher)

	lo := scraper.DefaultLagouOptions(session)
	lo.Verifier = v
	lo.VerifyWait = cfg.VerifyTimeout
	lo.VerifyPoll = cfg.VerifyPoll
	lo.PageTimeout = cfg.Timeout
	lo.Behavior = anti.HumanBehavior

	var boss scraper.Scraper
	if cfg.BossBrowser {
		bo := scraper.DefaultBossBrowserOptions(session)
		bo.PageTimeout = cfg.Timeout
		bo.Behavior = anti.HumanBehavior
		boss = scraper.NewBossBrowserScraper(bo)
	} else {
		boss = scraper.NewBossScraper(scraper.DefaultBossOptions(doer))
	}

	out := []scraper.Scraper{boss, scraper.NewLagouScraper(lo)}
	if cfg.EnableGeneric {
		for _, site := range []scraper.Site{scraper.SiteZhilian, scraper.SiteLiepin, scraper.Site51Job} {
			gopts := scraper.DefaultBossOptions(doer)
			gopts.Referer = ""
			out = append(out, scraper.NewGenericScraper(site, gopts))
		}
	}
	return out
}

// Orchestrator is the entry point for scraping one or many job URLs.
type Orchestrator struct {
	cfg    Config
	multi  *MultiSiteScraper
	sem    chan struct{}
	search scraper.SearchOptions
	pause  func() time.Duration
	log    *slog.Logger
}

// New builds an orchestrator. Without WithScrapers the production adapters are used.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := options{search: scraper.DefaultSearchOptions()}
	for _, fn := range opts {
		fn(&o)
	}
	anti := NewAntiDetection()
	if o.adapters == nil {
		o.adapters = DefaultScrapers(cfg, o.verifier, anti)
	}
	if o.searchPause == nil {
		o.searchPause = func() time.Duration { return engine.UniformDuration(2*time.Second, 4*time.Second) }
	}
	limit := cfg.ConcurrentLimit
	if limit <= 0 {
		limit = 1
	}
	multi := NewMultiSiteScraper(cfg, o.adapters...)
	multi.useAntiDetection(anti)
	return &Orchestrator{
		cfg:    cfg,
		multi:  multi,
		sem:    make(chan struct{}, limit),
		search: o.search,
		pause:  o.searchPause,
		log:    slog.With(slog.String("component", "orchestrator")),
	}
}

// ScrapeSingle scrapes one URL, waiting for a free concurrency slot.
func (o *Orchestrator) ScrapeSingle(ctx context.Context, rawURL string) scraper.Result {
	select {
	case o.sem <- struct{}{}:
	case <-ctx.Done():
		return scraper.Failed(rawURL, ctx.Err().Error())
	}
	defer func() { <-o.sem }()
	return o.multi.ScrapeWithRetries(ctx, rawURL, 0)
}

// ScrapeMultiple scrapes all URLs concurrently. Results keep input order.
func (o *Orchestrator) ScrapeMultiple(ctx context.Context, urls []string) []scraper.Result {
	o.log.Info("scraping batch", slog.Int("count", len(urls)))
	results := make([]scraper.Result, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = scraper.Failed(u, fmt.Sprintf("%v", r))
				}
			}()
			results[i] = o.ScrapeSingle(ctx, u)
		}()
	}
	wg.Wait()

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	o.log.Info("batch done", slog.Int("succeeded", ok), slog.Int("total", len(urls)))
	return results
}

// ScrapeSearch crawls a search result listing and scrapes each job found,
// pausing between detail pages.
func (o *Orchestrator) ScrapeSearch(ctx context.Context, searchURL string, maxPages int) ([]scraper.Result, error) {
	links, err := scraper.CrawlSearch(ctx, searchURL, maxPages, o.search)
	if err != nil {
		return nil, fmt.Errorf("crawl search: %w", err)
	}
	o.log.Info("search links found", slog.Int("count", len(links)))

	results := make([]scraper.Result, 0, len(links))
	for i, link := range links {
		if i > 0 {
			if err := engine.Sleep(ctx, o.pause()); err != nil {
				return results, err
			}
		}
		results = append(results, o.ScrapeSingle(ctx, link))
	}
	return results, nil
}

// SupportedSites lists every recognised site.
func (o *Orchestrator) SupportedSites() []string {
	out := make([]string, len(scraper.AllSites))
	for i, s := range scraper.AllSites {
		out[i] = string(s)
	}
	return out
}

// IsURLSupported reports whether url belongs to a recognised site.
func (o *Orchestrator) IsURLSupported(rawURL string) bool {
	_, ok := o.multi.DetectSite(rawURL)
	return ok
}

// PerformanceStats returns the monitor report, or nil when monitoring is off.
func (o *Orchestrator) PerformanceStats() *Report {
	if o.multi.monitor == nil {
		return nil
	}
	r := o.multi.monitor.Report()
	return &r
}

// HealthChecker is implemented by adapters that can report their own state.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Health is the HealthCheck result.
type Health struct {
	Status            string            `json:"status"`
	ScrapersAvailable int               `json:"scrapers_available"`
	SupportedSites    []string          `json:"supported_sites"`
	Config            map[string]any    `json:"config"`
	ScrapersStatus    map[string]string `json:"scrapers_status"`
	Performance       *Report           `json:"performance,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

// HealthCheck reports adapter availability and current stats.
func (o *Orchestrator) HealthCheck(ctx context.Context) Health {
	h := Health{
		Status:            "healthy",
		ScrapersAvailable: len(o.multi.scrapers),
		SupportedSites:    o.SupportedSites(),
		Config: map[string]any{
			"max_retries":      o.cfg.MaxRetries,
			"timeout":          o.cfg.Timeout.String(),
			"concurrent_limit": o.cfg.ConcurrentLimit,
			"headless":         o.cfg.Headless,
		},
		ScrapersStatus: make(map[string]string, len(o.multi.scrapers)),
		Timestamp:      time.Now(),
	}
	for site, a := range o.multi.scrapers {
		status := "available"
		if hc, ok := a.(HealthChecker); ok {
			if err := hc.Healthy(ctx); err != nil {
				status = "error: " + err.Error()
				h.Status = "degraded"
			}
		}
		h.ScrapersStatus[string(site)] = status
	}
	if o.cfg.EnableMonitoring {
		h.Performance = o.PerformanceStats()
	}
	return h
}

// Close releases every adapter.
func (o *Orchestrator) Close() error {
	if err := o.multi.Close(); err != nil {
		o.log.Error("cleanup failed", slog.Any("error", err))
		return err
	}
	return nil
}

// ScrapeURL scrapes one URL with a throwaway orchestrator.
func ScrapeURL(ctx context.Context, rawURL string, cfg Config, opts ...Option) scraper.Result {
	o := New(cfg, opts...)
	defer o.Close() //nolint:errcheck // logged by Close
	return o.ScrapeSingle(ctx, rawURL)
}

// ScrapeURLs scrapes a batch with a throwaway orchestrator.
func ScrapeURLs(ctx context.Context, urls []string, cfg Config, opts ...Option) []scraper.Result {
	o := New(cfg, opts...)
	defer o.Close() //nolint:errcheck // logged by Close
	return o.ScrapeMultiple(ctx, urls)
}
