// Package toolutil holds helpers shared by the MCP tools and the CLI:
// limit normalisation, cached scraping and importing scrape results.
package toolutil

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/jobs"
	"github.com/anatolykoptev/go_resume/internal/scraper"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// NormLimit returns def for n <= 0 and caps n at upper.
func NormLimit(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	return min(n, upper)
}

// ScrapeFunc scrapes one URL.
type ScrapeFunc func(ctx context.Context, rawURL string) scraper.Result

// ScrapeCached returns a cached successful result for rawURL when present,
// otherwise scrapes and caches a success. Failures are never cached.
func ScrapeCached(ctx context.Context, rawURL string, scrape ScrapeFunc) scraper.Result {
	key := engine.CacheKey("scrape", rawURL)
	if r, ok := engine.CacheLoadJSON[scraper.Result](ctx, key); ok && r.Success {
		return r
	}
	r := scrape(ctx, rawURL)
	if r.Success {
		engine.CacheStoreJSON(ctx, key, r)
	}
	return r
}

// ImportResults saves every successful result as a job. Failures and
// import errors are logged and skipped.
func ImportResults(ctx context.Context, m *jobs.Manager, results []scraper.Result) []*storage.Job {
	var saved []*storage.Job
	for _, r := range results {
		if !r.Success {
			continue
		}
		j, err := m.ImportScraped(ctx, r)
		if err != nil {
			slog.Warn("import scraped job failed", slog.String("url", r.URL), slog.Any("error", err))
			continue
		}
		saved = append(saved, j)
	}
	return saved
}

// Summary counts successes in results.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Saved     int `json:"saved"`
}

// Summarize counts results; saved is the number imported.
func Summarize(results []scraper.Result, saved int) Summary {
	s := Summary{Total: len(results), Saved: saved}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		}
	}
	s.Failed = s.Total - s.Succeeded
	return s
}
