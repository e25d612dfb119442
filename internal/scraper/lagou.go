package scraper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// ErrVerificationTimeout means the operator did not clear the challenge in time.
var ErrVerificationTimeout = errors.New("人工验证超时")

// Verifier is told when a page needs a human to solve a challenge. The
// returned channel, which may be nil, receives a value when the operator
// reports the challenge solved.
type Verifier interface {
	Notify(ctx context.Context, rawURL string) <-chan struct{}
}

// LagouOptions tunes the Lagou adapter.
type LagouOptions struct {
	Session     *BrowserSession
	Verifier    Verifier
	VerifyWait  time.Duration
	VerifyPoll  time.Duration
	SettleWait  Waits // after navigation
	Behavior    func() BehaviorPlan
	PageTimeout time.Duration
}

// DefaultLagouOptions returns production pacing on the shared browser.
func DefaultLagouOptions(session *BrowserSession) LagouOptions {
	return LagouOptions{
		Session:     session,
		VerifyWait:  5 * time.Minute,
		VerifyPoll:  3 * time.Second,
		SettleWait:  Waits{2 * time.Second, 4 * time.Second},
		Behavior:    DefaultBehavior,
		PageTimeout: 30 * time.Second,
	}
}

// LagouScraper renders lagou.com job pages in a real browser.
type LagouScraper struct {
	opts LagouOptions
	log  *slog.Logger
}

// NewLagouScraper builds the adapter. The browser starts lazily on first use.
func NewLagouScraper(opts LagouOptions) *LagouScraper {
	if opts.VerifyPoll <= 0 {
		opts.VerifyPoll = 3 * time.Second
	}
	if opts.VerifyWait <= 0 {
		opts.VerifyWait = 5 * time.Minute
	}
	if opts.Behavior == nil {
		opts.Behavior = DefaultBehavior
	}
	if opts.Session == nil {
		opts.Session = NewBrowserSession(BrowserOptions{}, nil)
	}
	return &LagouScraper{opts: opts, log: slog.With(slog.String("component", "lagou"))}
}

func (s *LagouScraper) Site() Site { return SiteLagou }

var lagouIDRe = []*regexp.Regexp{
	regexp.MustCompile(`/jobs/(\d+)\.html`),
	regexp.MustCompile(`/jobs/(\d+)$`),
}

// IsLagouJobURL reports whether rawURL points at a lagou.com job page.
func IsLagouJobURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Host), "lagou.com") && strings.Contains(u.Path, "/jobs/")
}

// LagouJobID extracts the numeric posting id.
func LagouJobID(rawURL string) (string, bool) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	for _, re := range lagouIDRe {
		if m := re.FindStringSubmatch(path); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Close releases the browser.
func (s *LagouScraper) Close() error { return s.opts.Session.Close() }

// Scrape renders the page, waits out any verification wall, and extracts the job.
func (s *LagouScraper) Scrape(ctx context.Context, rawURL string) Result {
	if !IsLagouJobURL(rawURL) {
		return Failed(rawURL, "不是有效的拉勾网职位URL")
	}
	jobID, ok := LagouJobID(rawURL)
	if !ok {
		return Failed(rawURL, "无法从URL中提取职位ID")
	}

	browser, err := s.opts.Session.Get(ctx)
	if err != nil {
		return Failed(rawURL, fmt.Sprintf("浏览器启动失败: %v", err))
	}
	page, err := browser.NewPage(ctx)
	if err != nil {
		return Failed(rawURL, fmt.Sprintf("打开页面失败: %v", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.log.Debug("page close failed", slog.Any("error", err))
		}
	}()
	engine.IncrBrowserPage()

	html, err := s.load(ctx, page, rawURL)
	if err != nil {
		return Failed(rawURL, err.Error())
	}

	job := ExtractLagouJob(html, rawURL)
	if job == nil {
		return Failed(rawURL, "提取职位信息失败")
	}
	job.ID = jobID
	s.log.Info("scraped job", slog.String("title", job.Title), slog.String("company", job.Company))
	return Succeeded(rawURL, job)
}

func (s *LagouScraper) load(ctx context.Context, page Page, rawURL string) (string, error) {
	navCtx := ctx
	if s.opts.PageTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.opts.PageTimeout)
		defer cancel()
	}
	if err := page.Navigate(navCtx, rawURL); err != nil {
		return "", fmt.Errorf("页面加载失败: %w", err)
	}
	if err := engine.Sleep(ctx, s.opts.SettleWait.pick()); err != nil {
		return "", err
	}
	if err := actLikeReader(ctx, page, s.opts.Behavior(), s.log); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("读取页面失败: %w", err)
	}
	if HasAntiRobot(html) {
		s.log.Warn("verification required", slog.String("url", rawURL))
		html, err = WaitForVerification(ctx, page, rawURL, s.opts.Verifier, s.opts.VerifyWait, s.opts.VerifyPoll)
		if err != nil {
			return "", err
		}
	}
	return html, nil
}

// WaitForVerification polls the page until the anti-robot check disappears,
// the timeout elapses, or ctx ends. A signal from the verifier means the
// operator has finished: the page is read once more and returned even if
// indicators remain, leaving extraction to decide.
func WaitForVerification(ctx context.Context, page Page, rawURL string, v Verifier, timeout, poll time.Duration) (string, error) {
	engine.IncrManualVerification()
	var confirmed <-chan struct{}
	if v != nil {
		confirmed = v.Notify(ctx, rawURL)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		byOperator := false
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrVerificationTimeout
		case <-ticker.C:
		case _, ok := <-confirmed:
			if !ok {
				confirmed = nil
				continue
			}
			byOperator = true
		}
		html, err := page.HTML()
		if err != nil {
			return "", fmt.Errorf("读取页面失败: %w", err)
		}
		if !HasAntiRobot(html) {
			slog.Info("verification cleared", slog.String("url", rawURL))
			return html, nil
		}
		if byOperator {
			slog.Warn("operator confirmed verification, challenge text still present", slog.String("url", rawURL))
			return html, nil
		}
	}
}

// ConsoleVerifier prints instructions and turns each input line into an
// operator confirmation.
type ConsoleVerifier struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan struct{}
}

func (c *ConsoleVerifier) Notify(ctx context.Context, rawURL string) <-chan struct{} {
	fmt.Fprintf(c.Out, "\n检测到人机验证: %s\n请在浏览器窗口中完成验证，完成后按回车键继续（也会自动检测）。\n", rawURL)
	c.once.Do(func() {
		c.lines = make(chan struct{}, 1)
		go func() {
			sc := bufio.NewScanner(c.In)
			for sc.Scan() {
				select {
				case c.lines <- struct{}{}:
				default:
				}
			}
			close(c.lines)
		}()
	})
	return c.lines
}

var lagouSelectors = struct {
	title, company, salary, location, description, published []string
}{
	title:       []string{"span.name", "h1.position-head-wrap-name"},
	company:     []string{"a.b2", "h2.fl"},
	salary:      []string{"span.salary", "span.position-head-wrap-salary"},
	location:    []string{"span.add", "em.add"},
	description: []string{"dd.job_bt", "div.job_bt"},
	published:   []string{"span.time", "time"},
}

// ExtractLagouJob parses a rendered Lagou page. It returns nil when title or company is missing.
func ExtractLagouJob(html, rawURL string) *Job {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	job := &Job{
		ID:          ShortID(rawURL),
		Title:       firstText(doc, lagouSelectors.title),
		Company:     firstText(doc, lagouSelectors.company),
		Salary:      firstText(doc, lagouSelectors.salary),
		JobType:     "全职",
		Source:      SiteLagou,
		SourceURL:   rawURL,
		CrawledAt:   time.Now(),
		CompanyInfo: map[string]string{},
	}
	if job.Title == "" || job.Company == "" {
		return nil
	}

	if lo, hi, ok := ParseSalary(job.Salary); ok {
		job.SalaryMin, job.SalaryMax = lo, hi
	}

	if addr, ok := doc.Find("input[name=positionAddress]").First().Attr("value"); ok && strings.TrimSpace(addr) != "" {
		job.Location = strings.TrimSpace(addr)
	} else {
		job.Location = firstText(doc, lagouSelectors.location)
	}

	request := engine.CollapseSpaces(doc.Find("dd.job_request").First().Text())
	if request != "" {
		if lo, hi, ok := ParseExperience(request); ok {
			job.ExperienceMin, job.ExperienceMax = lo, hi
			switch {
			case strings.Contains(request, "经验不限"):
				job.ExperienceLevel = "经验不限"
			case hi > 0:
				job.ExperienceLevel = fmt.Sprintf("%d-%d年", lo, hi)
			default:
				job.ExperienceLevel = fmt.Sprintf("%d年以上", lo)
			}
		}
		job.EducationLevel = ParseEducation(request)
	}

	for _, sel := range lagouSelectors.description {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		var lines []string
		node.Find("p, li").Each(func(_ int, s *goquery.Selection) {
			if t := engine.CollapseSpaces(s.Text()); t != "" {
				lines = append(lines, t)
			}
		})
		if len(lines) == 0 {
			for _, l := range strings.Split(node.Text(), "\n") {
				if t := engine.CollapseSpaces(l); t != "" {
					lines = append(lines, t)
				}
			}
		}
		if len(lines) > 0 {
			job.Description = strings.Join(lines, "\n")
			break
		}
	}
	job.Requirements = job.Description

	var features []string
	doc.Find("ul.c_feature li").Each(func(_ int, s *goquery.Selection) {
		if t := engine.CollapseSpaces(s.Text()); t != "" {
			features = append(features, t)
		}
	})
	if len(features) > 0 {
		job.CompanyInfo["features"] = strings.Join(features, " | ")
	}

	job.PublishedTime = firstText(doc, lagouSelectors.published)
	job.Skills = ExtractSkills(job.Title + "\n" + job.Description)
	return job
}
