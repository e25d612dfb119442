package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/engine"
)

var errBlocked = errors.New("blocked by anti-bot wall")

// Waits bounds a random pause.
type Waits struct{ Min, Max time.Duration }

func (w Waits) pick() time.Duration { return engine.UniformDuration(w.Min, w.Max) }

// BossOptions tunes the BOSS直聘 adapter.
type BossOptions struct {
	Doer         engine.Doer
	MaxTries     uint
	RequestDelay Waits // before every request
	BlockedWait  Waits // after an anti-bot response
	ErrorWait    Waits // after a transport error
	UserAgent    func() string
	Referer      string // empty means the target's origin
	HealthURL    string
}

// DefaultBossOptions returns production pacing.
func DefaultBossOptions(d engine.Doer) BossOptions {
	return BossOptions{
		Doer:         d,
		MaxTries:     3,
		RequestDelay: Waits{time.Second, 3 * time.Second},
		BlockedWait:  Waits{3 * time.Second, 8 * time.Second},
		ErrorWait:    Waits{2 * time.Second, 5 * time.Second},
		UserAgent:    engine.RandomUserAgent,
		Referer:      "https://www.zhipin.com/",
		HealthURL:    "https://www.zhipin.com/",
	}
}

// BossScraper scrapes zhipin.com job detail pages over HTTP.
type BossScraper struct {
	opts BossOptions
	log  *slog.Logger
}

// NewBossScraper builds the adapter.
func NewBossScraper(opts BossOptions) *BossScraper {
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	if opts.UserAgent == nil {
		opts.UserAgent = engine.RandomUserAgent
	}
	return &BossScraper{opts: opts, log: slog.With(slog.String("component", "boss"))}
}

func (s *BossScraper) Site() Site { return SiteBoss }

func (s *BossScraper) Close() error { return nil }

// Healthy fetches the site home page once, without retries or pacing.
func (s *BossScraper) Healthy(ctx context.Context) error {
	if s.opts.HealthURL == "" {
		return nil
	}
	_, status, err := engine.FetchPage(ctx, s.opts.Doer, s.opts.HealthURL, s.headers(s.opts.HealthURL))
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if status != 200 {
		return &engine.HTTPStatusError{StatusCode: status}
	}
	return nil
}

func (s *BossScraper) headers(rawURL string) map[string]string {
	h := engine.ChromeHeaders()
	h["user-agent"] = s.opts.UserAgent()
	h["referer"] = s.opts.Referer
	if h["referer"] == "" {
		if u, err := url.Parse(rawURL); err == nil {
			h["referer"] = u.Scheme + "://" + u.Host + "/"
		}
	}
	return h
}

// pageBackOff picks its wait from the kind of the last failure.
type pageBackOff struct {
	blocked bool
	opts    *BossOptions
}

func (b *pageBackOff) NextBackOff() time.Duration {
	if b.blocked {
		return b.opts.BlockedWait.pick()
	}
	return b.opts.ErrorWait.pick()
}

func (b *pageBackOff) Reset() {}

// Fetch downloads a page, retrying on anti-bot walls and transport errors.
// A nil body with nil error means every try was blocked.
func (s *BossScraper) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := engine.Sleep(ctx, s.opts.RequestDelay.pick()); err != nil {
		return nil, err
	}

	bo := &pageBackOff{opts: &s.opts}
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		body, status, err := engine.FetchPage(ctx, s.opts.Doer, rawURL, s.headers(rawURL))
		if err != nil {
			bo.blocked = false
			s.log.Warn("request failed", slog.Int("attempt", attempt), slog.Any("error", err))
			return nil, err
		}
		if IsBlockedResponse(status, body) {
			bo.blocked = true
			engine.IncrBlocked()
			s.log.Warn("blocked response", slog.Int("attempt", attempt), slog.Int("status", status))
			return nil, errBlocked
		}
		if status >= 400 {
			bo.blocked = false
			return nil, &engine.HTTPStatusError{StatusCode: status}
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.opts.MaxTries),
		backoff.WithMaxElapsedTime(0),
	)
	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, errBlocked):
		return nil, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}
	return nil, apperr.NetworkWrap(fmt.Sprintf("请求失败: %v", err), rawURL, err)
}

// Scrape fetches and extracts one job detail page.
func (s *BossScraper) Scrape(ctx context.Context, rawURL string) Result {
	if !validHTTPURL(rawURL) {
		return Failed(rawURL, "无效的URL格式")
	}
	body, err := s.Fetch(ctx, rawURL)
	if err != nil {
		return Failed(rawURL, err.Error())
	}
	if body == nil {
		return Failed(rawURL, "请求失败")
	}
	job, err := ExtractBossJob(string(body), rawURL)
	if err != nil {
		return Failed(rawURL, err.Error())
	}
	if job == nil {
		return Failed(rawURL, "未能提取到职位信息")
	}
	s.log.Info("scraped job", slog.String("title", job.Title), slog.String("company", job.Company))
	return Succeeded(rawURL, job)
}

var bossSelectors = struct {
	title, company, salary, location, experience, education, description, tags []string
}{
	title:       []string{".job-title", ".job-name", "h1.name", `[class*="job"][class*="title"]`, "h1", ".position-head h1"},
	company:     []string{".company-name a", ".company-name", `[class*="company"][class*="name"]`, ".info-company h3", ".company-info .name"},
	salary:      []string{".salary", ".job-salary", `[class*="salary"]`, ".position-salary"},
	location:    []string{".job-area", ".job-location", `[class*="location"]`, ".position-location"},
	experience:  []string{".job-experience", `[class*="experience"]`, ".position-require"},
	education:   []string{".job-degree", `[class*="degree"]`, `[class*="education"]`},
	description: []string{".job-sec", ".job-detail", ".job-description", `[class*="job"][class*="desc"]`, ".position-detail"},
	tags:        []string{".job-tag", ".position-tag", `[class*="tag"]`},
}

// minDescriptionRunes filters out navigation snippets matched by loose selectors.
const minDescriptionRunes = 50

// firstText returns the trimmed text of the first selector that yields any.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := engine.CollapseSpaces(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// ExtractBossJob parses a BOSS直聘 detail page. It returns nil when no title is found.
func ExtractBossJob(html, rawURL string) (*Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperr.Parse(fmt.Sprintf("HTML解析失败: %v", err), rawURL, "html")
	}

	title := firstText(doc, bossSelectors.title)
	if title == "" {
		pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
		if pageTitle != "" {
			title = strings.TrimSpace(strings.SplitN(pageTitle, "-", 2)[0])
		}
	}
	if title == "" {
		return nil, nil
	}

	job := &Job{
		ID:          ShortID(rawURL),
		Title:       title,
		Company:     firstText(doc, bossSelectors.company),
		Salary:      firstText(doc, bossSelectors.salary),
		Location:    firstText(doc, bossSelectors.location),
		JobType:     "全职",
		Source:      SiteBoss,
		SourceURL:   rawURL,
		CrawledAt:   time.Now(),
		CompanyInfo: map[string]string{},
	}
	if job.Company == "" {
		job.Company = "未知公司"
	}

	if exp := firstText(doc, bossSelectors.experience); exp != "" {
		job.ExperienceLevel = exp
		job.ExperienceMin, job.ExperienceMax, _ = ParseExperience(exp)
	}
	if edu := firstText(doc, bossSelectors.education); edu != "" {
		if lvl := ParseEducation(edu); lvl != "" {
			job.EducationLevel = lvl
		} else {
			job.EducationLevel = edu
		}
	}
	if lo, hi, ok := ParseSalary(job.Salary); ok {
		job.SalaryMin, job.SalaryMax = lo, hi
	}

	for _, sel := range bossSelectors.description {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		inner, err := node.Html()
		if err != nil {
			continue
		}
		text := engine.HTMLToText(inner)
		if engine.RuneLen(text) > minDescriptionRunes {
			job.Description = text
			job.Requirements = text
			break
		}
	}
	if job.Description == "" {
		job.Description = "职位描述暂无"
	}
	if job.Requirements == "" {
		job.Requirements = "职位要求暂无"
	}

	for _, sel := range bossSelectors.tags {
		var tags []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			tags = append(tags, engine.CollapseSpaces(s.Text()))
		})
		if tags = engine.Dedupe(tags); len(tags) > 0 {
			job.Tags = tags
			break
		}
	}

	if size := engine.CollapseSpaces(doc.Find(".company-size").First().Text()); size != "" {
		job.CompanyInfo["size"] = size
	}
	if kind := engine.CollapseSpaces(doc.Find(".company-type").First().Text()); kind != "" {
		job.CompanyInfo["type"] = kind
	}

	job.Skills = ExtractSkills(job.Description + "\n" + strings.Join(job.Tags, " "))
	return job, nil
}
