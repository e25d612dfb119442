package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// ExtractGeneric builds a best-effort job from any page using readability.
func ExtractGeneric(html, rawURL string, site Site) *Job {
	job := &Job{
		ID:        ShortID(rawURL),
		Title:     "未知职位",
		Company:   "未知公司",
		JobType:   "全职",
		Source:    site,
		SourceURL: rawURL,
		CrawledAt: time.Now(),
	}

	pageTitle := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		pageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	}

	parsed, _ := url.Parse(rawURL)
	if article, err := readability.FromReader(strings.NewReader(html), parsed); err == nil {
		if t := strings.TrimSpace(article.Title); t != "" && pageTitle == "" {
			pageTitle = t
		}
		job.Description = strings.TrimSpace(article.TextContent)
		if article.SiteName != "" {
			job.Company = article.SiteName
		}
	} else {
		slog.Debug("readability failed", slog.String("url", rawURL), slog.Any("error", err))
	}

	if pageTitle != "" {
		parts := strings.Split(pageTitle, "-")
		if t := strings.TrimSpace(parts[0]); t != "" {
			job.Title = t
		}
		if len(parts) > 1 && job.Company == "未知公司" {
			if c := strings.TrimSpace(parts[1]); c != "" {
				job.Company = c
			}
		}
	}
	if job.Description == "" {
		job.Description = "职位描述暂无"
	}
	job.Description = engine.TruncateRunes(job.Description, 10000, "")
	job.Requirements = job.Description
	job.Skills = ExtractSkills(job.Description)
	return job
}

// GenericScraper fetches any page over HTTP and applies ExtractGeneric.
// It stands in for sites that have no dedicated adapter.
type GenericScraper struct {
	site  Site
	fetch *BossScraper
}

// NewGenericScraper reuses the BOSS fetch pipeline (headers, pacing, retries).
func NewGenericScraper(site Site, opts BossOptions) *GenericScraper {
	opts.Referer = ""
	return &GenericScraper{site: site, fetch: NewBossScraper(opts)}
}

func (g *GenericScraper) Site() Site { return g.site }

func (g *GenericScraper) Close() error { return nil }

func (g *GenericScraper) Scrape(ctx context.Context, rawURL string) Result {
	if !validHTTPURL(rawURL) {
		return Failed(rawURL, "无效的URL格式")
	}
	body, err := g.fetch.Fetch(ctx, rawURL)
	if err != nil {
		return Failed(rawURL, err.Error())
	}
	if body == nil {
		return Failed(rawURL, "请求失败")
	}
	return Succeeded(rawURL, ExtractGeneric(string(body), rawURL, g.site))
}
