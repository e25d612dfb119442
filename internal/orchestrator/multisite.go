package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/scraper"
)

// MultiSiteScraper routes URLs to site adapters and retries failures.
type MultiSiteScraper struct {
	cfg       Config
	scrapers  map[scraper.Site]scraper.Scraper
	limiters  map[scraper.Site]*rate.Limiter
	anti      *AntiDetection
	validator DataValidator
	monitor   *Monitor
	log       *slog.Logger

	// overridable in tests
	antiDelay func() time.Duration
	backoff   func(attempt int) time.Duration
}

// NewMultiSiteScraper registers the given adapters by their Site.
func NewMultiSiteScraper(cfg Config, adapters ...scraper.Scraper) *MultiSiteScraper {
	m := &MultiSiteScraper{
		cfg:      cfg,
		scrapers: make(map[scraper.Site]scraper.Scraper, len(adapters)),
		limiters: make(map[scraper.Site]*rate.Limiter, len(adapters)),
		anti:     NewAntiDetection(),
		log:      slog.With(slog.String("component", "multisite")),
	}
	if cfg.EnableMonitoring {
		m.monitor = NewMonitor(cfg.StatsFile)
	}
	limit := rate.Inf
	if cfg.SiteInterval > 0 {
		limit = rate.Every(cfg.SiteInterval)
	}
	for _, a := range adapters {
		m.scrapers[a.Site()] = a
		m.limiters[a.Site()] = rate.NewLimiter(limit, 1)
	}
	m.antiDelay = m.anti.CalculateDelay
	m.backoff = func(attempt int) time.Duration {
		exp := time.Duration(float64(cfg.RetryDelay) * math.Pow(2, float64(attempt)))
		return exp + time.Duration(rand.Float64()*float64(time.Second))
	}
	return m
}

// useAntiDetection replaces the pacing manager, so adapters built with the
// same manager draw from one request history.
func (m *MultiSiteScraper) useAntiDetection(a *AntiDetection) {
	m.anti = a
	m.antiDelay = a.CalculateDelay
}

// DetectSite maps url to a supported site.
func (m *MultiSiteScraper) DetectSite(rawURL string) (scraper.Site, bool) {
	return scraper.DetectSite(rawURL)
}

// Monitor returns the stats recorder, or nil when monitoring is off.
func (m *MultiSiteScraper) Monitor() *Monitor { return m.monitor }

func (m *MultiSiteScraper) attemptTimeout(site scraper.Site) time.Duration {
	if site == scraper.SiteLagou {
		// allow for a manual verification on top of the page load
		return m.cfg.Timeout + m.cfg.VerifyTimeout
	}
	return m.cfg.Timeout
}

// runOnce scrapes under the site limiter and timeout. A panicking adapter
// yields a failed result.
func (m *MultiSiteScraper) runOnce(ctx context.Context, site scraper.Site, a scraper.Scraper, rawURL string) (res scraper.Result) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("adapter panic", slog.String("site", string(site)), slog.Any("panic", r))
			res = scraper.Failed(rawURL, fmt.Sprintf("%v", r))
		}
	}()
	if err := m.limiters[site].Wait(ctx); err != nil {
		return scraper.Failed(rawURL, err.Error())
	}
	if d := m.attemptTimeout(site); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return a.Scrape(ctx, rawURL)
}

// ScrapeWithRetries scrapes rawURL with up to maxRetries retries.
// maxRetries <= 0 uses the configured default.
func (m *MultiSiteScraper) ScrapeWithRetries(ctx context.Context, rawURL string, maxRetries int) scraper.Result {
	if maxRetries <= 0 {
		maxRetries = m.cfg.MaxRetries
	}
	site, ok := m.DetectSite(rawURL)
	if !ok {
		return scraper.Failed(rawURL, "不支持的招聘网站")
	}
	adapter, ok := m.scrapers[site]
	if !ok {
		return scraper.Failed(rawURL, fmt.Sprintf("网站 %s 的爬虫未实现", site))
	}
	log := m.log.With(slog.String("site", string(site)), slog.String("url", rawURL))

	lastErr := "未知错误"
	for attempt := 0; attempt <= maxRetries; attempt++ {
		start := time.Now()
		engine.IncrScrapeAttempt()
		if m.monitor != nil {
			m.monitor.RecordAttempt(string(site))
		}

		if attempt > 0 {
			delay := m.antiDelay()
			log.Info("retrying", slog.Int("attempt", attempt+1), slog.Duration("delay", delay))
			if err := engine.Sleep(ctx, delay); err != nil {
				lastErr = err.Error()
				break
			}
		}

		res := m.runOnce(ctx, site, adapter, rawURL)
		if res.Success && res.Job != nil {
			if m.cfg.DataValidation {
				if ok, issues := m.validator.Validate(res.Job); !ok {
					log.Warn("data quality issues", slog.Any("issues", issues))
				}
				m.validator.Clean(res.Job)
			}
			engine.IncrScrapeSuccess()
			if m.monitor != nil {
				m.monitor.RecordSuccess(string(site), time.Since(start))
			}
			log.Info("scraped job", slog.String("title", res.Job.Title), slog.String("company", res.Job.Company))
			return res
		}

		if res.Error != "" {
			lastErr = res.Error
		}
		log.Warn("attempt failed", slog.Int("attempt", attempt+1), slog.String("error", lastErr))

		if ctx.Err() != nil {
			lastErr = ctx.Err().Error()
			break
		}
		if attempt < maxRetries {
			if err := engine.Sleep(ctx, m.backoff(attempt)); err != nil {
				lastErr = err.Error()
				break
			}
		}
	}

	engine.IncrScrapeFailure()
	if m.monitor != nil {
		m.monitor.RecordFailure(string(site), lastErr)
	}
	return scraper.Failed(rawURL, fmt.Sprintf("重试 %d 次后仍然失败: %s", maxRetries, lastErr))
}

// Close closes every adapter, returning the first error.
func (m *MultiSiteScraper) Close() error {
	var first error
	for site, a := range m.scrapers {
		if err := a.Close(); err != nil {
			m.log.Error("close adapter", slog.String("site", string(site)), slog.Any("error", err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
