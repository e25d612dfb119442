package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// SearchOptions controls search-result crawling.
type SearchOptions struct {
	PageDelay   time.Duration // fixed wait between pages
	RandomDelay time.Duration // extra uniform wait between pages
	Timeout     time.Duration
	UserAgent   string
	LinkPrefix  string
}

// DefaultSearchOptions waits 3–6s between BOSS result pages.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		PageDelay:   3 * time.Second,
		RandomDelay: 3 * time.Second,
		Timeout:     30 * time.Second,
		LinkPrefix:  "/job_detail/",
	}
}

// PageURL appends the page number to a search URL.
func PageURL(searchURL string, page int) string {
	if strings.Contains(searchURL, "?") {
		return fmt.Sprintf("%s&page=%d", searchURL, page)
	}
	return fmt.Sprintf("%s?page=%d", searchURL, page)
}

// CrawlSearch walks result pages 1..maxPages and returns deduplicated job
// detail URLs. It stops at the first page with no job links.
func CrawlSearch(ctx context.Context, searchURL string, maxPages int, o SearchOptions) ([]string, error) {
	if maxPages <= 0 {
		maxPages = 3
	}
	if o.LinkPrefix == "" {
		o.LinkPrefix = "/job_detail/"
	}
	ua := o.UserAgent
	if ua == "" {
		ua = engine.RandomUserAgent()
	}
	log := slog.With(slog.String("component", "search"))

	c := colly.NewCollector(
		colly.UserAgent(ua),
		colly.StdlibContext(ctx),
	)
	// LimitRule delays sleep without ctx, so pacing happens in the page loop.
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("search: limit rule: %w", err)
	}
	if o.Timeout > 0 {
		c.SetRequestTimeout(o.Timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
		r.Headers.Set("Referer", "https://www.zhipin.com/")
		engine.IncrSearchPage()
	})

	seen := make(map[string]bool)
	var links []string
	pageLinks := 0
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !strings.HasPrefix(href, o.LinkPrefix) {
			return
		}
		pageLinks++
		abs := e.Request.AbsoluteURL(href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			wait := o.PageDelay + engine.UniformDuration(0, o.RandomDelay)
			if err := engine.Sleep(ctx, wait); err != nil {
				return links, err
			}
		}
		if err := ctx.Err(); err != nil {
			return links, err
		}
		pageLinks = 0
		u := PageURL(searchURL, page)
		if err := c.Visit(u); err != nil {
			log.Warn("search page failed", slog.Int("page", page), slog.Any("error", err))
			if page == 1 {
				return nil, fmt.Errorf("search: visit %s: %w", u, err)
			}
			break
		}
		log.Info("search page crawled", slog.Int("page", page), slog.Int("links", pageLinks))
		if pageLinks == 0 {
			break
		}
	}
	return links, nil
}
