package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// BossBrowserOptions tunes the rendered BOSS直聘 adapter.
type BossBrowserOptions struct {
	Session     *BrowserSession
	SettleWait  Waits
	Behavior    func() BehaviorPlan
	PageTimeout time.Duration
}

// DefaultBossBrowserOptions returns production pacing on the shared browser.
func DefaultBossBrowserOptions(session *BrowserSession) BossBrowserOptions {
	return BossBrowserOptions{
		Session:     session,
		SettleWait:  Waits{2 * time.Second, 5 * time.Second},
		Behavior:    DefaultBehavior,
		PageTimeout: 30 * time.Second,
	}
}

// BossBrowserScraper renders zhipin.com pages in Chromium. It gets past
// script-built pages the HTTP adapter sees empty.
type BossBrowserScraper struct {
	opts BossBrowserOptions
	log  *slog.Logger
}

// NewBossBrowserScraper builds the adapter. The browser starts on first use.
func NewBossBrowserScraper(opts BossBrowserOptions) *BossBrowserScraper {
	if opts.Behavior == nil {
		opts.Behavior = DefaultBehavior
	}
	if opts.Session == nil {
		opts.Session = NewBrowserSession(BrowserOptions{}, nil)
	}
	return &BossBrowserScraper{opts: opts, log: slog.With(slog.String("component", "boss_browser"))}
}

func (s *BossBrowserScraper) Site() Site { return SiteBoss }

func (s *BossBrowserScraper) Close() error { return s.opts.Session.Close() }

// Scrape renders the page, rejects login and verification walls, and
// extracts the job from the rendered HTML.
func (s *BossBrowserScraper) Scrape(ctx context.Context, rawURL string) Result {
	if !validHTTPURL(rawURL) {
		return Failed(rawURL, "无效的URL格式")
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

	navCtx := ctx
	if s.opts.PageTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.opts.PageTimeout)
		defer cancel()
	}
	if err := page.Navigate(navCtx, rawURL); err != nil {
		return Failed(rawURL, fmt.Sprintf("页面加载失败: %v", err))
	}
	if err := engine.Sleep(ctx, s.opts.SettleWait.pick()); err != nil {
		return Failed(rawURL, err.Error())
	}
	if err := actLikeReader(ctx, page, s.opts.Behavior(), s.log); err != nil {
		return Failed(rawURL, err.Error())
	}

	html, err := page.HTML()
	if err != nil {
		return Failed(rawURL, fmt.Sprintf("读取页面失败: %v", err))
	}
	title, err := page.Title()
	if err != nil {
		s.log.Debug("page title unavailable", slog.Any("error", err))
	}
	_, body := VisibleText(html)
	if CheckBlockedPage(title, body) {
		engine.IncrBlocked()
		s.log.Warn("page blocked", slog.String("url", rawURL), slog.String("title", title))
		return Failed(rawURL, "页面被拦截或需要验证")
	}

	job, err := ExtractBossJob(html, rawURL)
	if err != nil {
		return Failed(rawURL, err.Error())
	}
	if job == nil {
		return Failed(rawURL, "未能提取到职位信息")
	}
	s.log.Info("scraped job", slog.String("title", job.Title), slog.String("company", job.Company))
	return Succeeded(rawURL, job)
}
