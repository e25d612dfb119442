package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_resume/internal/config"
	"github.com/anatolykoptev/go_resume/internal/scraper"
)

type fakeScraper struct {
	site     scraper.Site
	fn       func(call int, rawURL string) scraper.Result
	calls    atomic.Int32
	active   atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
	closeErr error
	health   error
	closed   atomic.Bool
}

func (f *fakeScraper) Site() scraper.Site { return f.site }

func (f *fakeScraper) Scrape(_ context.Context, rawURL string) scraper.Result {
	n := f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	return f.fn(int(n), rawURL)
}

func (f *fakeScraper) Close() error {
	f.closed.Store(true)
	return f.closeErr
}

func (f *fakeScraper) Healthy(context.Context) error { return f.health }

func okJob(rawURL string) scraper.Result {
	return scraper.Succeeded(rawURL, &scraper.Job{
		Title:       "  Go   后端工程师 ",
		Company:     "字节跳动",
		Description: "  负责服务端开发\n\n   熟悉分布式系统  \n",
		Skills:      []string{"Go", " Go", "Redis", ""},
		Source:      scraper.SiteBoss,
		SourceURL:   rawURL,
	})
}

func alwaysOK(_ int, rawURL string) scraper.Result { return okJob(rawURL) }

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.Timeout = 5 * time.Second
	cfg.ConcurrentLimit = 2
	cfg.SiteInterval = 0
	cfg.StatsFile = filepath.Join(t.TempDir(), "stats.json")
	return cfg
}

func noWaits(m *MultiSiteScraper) {
	m.antiDelay = func() time.Duration { return 0 }
	m.backoff = func(int) time.Duration { return 0 }
}

func newTestOrchestrator(t *testing.T, cfg Config, adapters ...scraper.Scraper) *Orchestrator {
	t.Helper()
	o := New(cfg,
		WithScrapers(adapters...),
		WithSearchOptions(scraper.SearchOptions{}),
		WithSearchPause(func() time.Duration { return 0 }),
	)
	noWaits(o.multi)
	return o
}

const bossURL = "https://www.zhipin.com/job_detail/abc.html"

func TestScrapeWithRetriesUnsupported(t *testing.T) {
	m := NewMultiSiteScraper(testConfig(t), &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK})
	res := m.ScrapeWithRetries(context.Background(), "https://example.com/job/1", 0)
	assert.False(t, res.Success)
	assert.Equal(t, "不支持的招聘网站", res.Error)
}

func TestScrapeWithRetriesNoAdapter(t *testing.T) {
	m := NewMultiSiteScraper(testConfig(t), &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK})
	res := m.ScrapeWithRetries(context.Background(), "https://jobs.zhaopin.com/1.htm", 0)
	assert.Equal(t, "网站 zhilian 的爬虫未实现", res.Error)
}

func TestScrapeWithRetriesEventuallySucceeds(t *testing.T) {
	f := &fakeScraper{site: scraper.SiteBoss, fn: func(call int, u string) scraper.Result {
		if call < 3 {
			return scraper.Failed(u, "请求失败")
		}
		return okJob(u)
	}}
	m := NewMultiSiteScraper(testConfig(t), f)
	noWaits(m)

	res := m.ScrapeWithRetries(context.Background(), bossURL, 0)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int32(3), f.calls.Load())

	assert.Equal(t, "Go 后端工程师", res.Job.Title)
	assert.Equal(t, "负责服务端开发\n熟悉分布式系统", res.Job.Description)
	assert.Equal(t, []string{"Go", "Redis"}, res.Job.Skills)

	st := m.Monitor().Snapshot()
	assert.Equal(t, 3, st.TotalAttempts)
	assert.Equal(t, 1, st.SuccessfulScrapes)
	assert.Equal(t, 0, st.FailedScrapes)
	assert.Equal(t, 3, st.SiteStats["boss"].Attempts)
	assert.NotNil(t, st.SiteStats["boss"].LastSuccess)
	assert.Equal(t, "33.33%", m.Monitor().Report().Overall.SuccessRate)
}

func TestScrapeWithRetriesGivesUp(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeScraper{site: scraper.SiteBoss, fn: func(_ int, u string) scraper.Result {
		return scraper.Failed(u, "boom")
	}}
	m := NewMultiSiteScraper(cfg, f)
	noWaits(m)

	res := m.ScrapeWithRetries(context.Background(), bossURL, 0)
	assert.False(t, res.Success)
	assert.Equal(t, "重试 2 次后仍然失败: boom", res.Error)
	assert.Equal(t, int32(3), f.calls.Load())

	reloaded := NewMonitor(cfg.StatsFile).Snapshot()
	assert.Equal(t, 3, reloaded.TotalAttempts)
	assert.Equal(t, 1, reloaded.FailedScrapes)
	assert.Equal(t, 1, reloaded.SiteStats["boss"].Failures)
	assert.NotNil(t, reloaded.SiteStats["boss"].LastFailure)
}

func TestScrapeWithRetriesExplicitCount(t *testing.T) {
	f := &fakeScraper{site: scraper.SiteBoss, fn: func(_ int, u string) scraper.Result {
		return scraper.Failed(u, "boom")
	}}
	m := NewMultiSiteScraper(testConfig(t), f)
	noWaits(m)

	res := m.ScrapeWithRetries(context.Background(), bossURL, 1)
	assert.Equal(t, "重试 1 次后仍然失败: boom", res.Error)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestScrapeWithRetriesRecoversPanic(t *testing.T) {
	f := &fakeScraper{site: scraper.SiteBoss, fn: func(int, string) scraper.Result {
		panic("selector exploded")
	}}
	m := NewMultiSiteScraper(testConfig(t), f)
	noWaits(m)

	res := m.ScrapeWithRetries(context.Background(), bossURL, 0)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "selector exploded")
}

func TestScrapeWithRetriesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeScraper{site: scraper.SiteBoss, fn: func(_ int, u string) scraper.Result {
		cancel()
		return scraper.Failed(u, "boom")
	}}
	m := NewMultiSiteScraper(testConfig(t), f)
	noWaits(m)

	res := m.ScrapeWithRetries(ctx, bossURL, 0)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.Canceled.Error())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestScrapeWithRetriesMonitoringOff(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableMonitoring = false
	m := NewMultiSiteScraper(cfg, &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK})
	res := m.ScrapeWithRetries(context.Background(), bossURL, 0)
	assert.True(t, res.Success)
	assert.Nil(t, m.Monitor())
}

func TestScrapeMultipleKeepsOrderAndLimit(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeScraper{site: scraper.SiteBoss, hold: 20 * time.Millisecond, fn: func(_ int, u string) scraper.Result {
		if u == bossURL+"?bad" {
			return scraper.Failed(u, "nope")
		}
		return okJob(u)
	}}
	o := newTestOrchestrator(t, cfg, f)

	urls := []string{bossURL + "?1", bossURL + "?bad", "https://example.com/x", bossURL + "?2", bossURL + "?3"}
	results := o.ScrapeMultiple(context.Background(), urls)
	require.Len(t, results, len(urls))
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "不支持的招聘网站", results[2].Error)
	assert.True(t, results[4].Success)
	assert.LessOrEqual(t, f.peak.Load(), int32(cfg.ConcurrentLimit))
}

func TestHealthCheck(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg,
		&fakeScraper{site: scraper.SiteBoss, fn: alwaysOK},
		&fakeScraper{site: scraper.SiteLagou, fn: alwaysOK, health: errors.New("browser missing")},
	)

	h := o.HealthCheck(context.Background())
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, 2, h.ScrapersAvailable)
	assert.Equal(t, "available", h.ScrapersStatus["boss"])
	assert.Equal(t, "error: browser missing", h.ScrapersStatus["lagou"])
	assert.Equal(t, []string{"boss", "lagou", "zhilian", "liepin", "51job"}, h.SupportedSites)
	assert.Equal(t, 2, h.Config["max_retries"])
	assert.NotNil(t, h.Performance)
}

type statusDoer int

func (d statusDoer) Do(context.Context, string, string, map[string]string, io.Reader) ([]byte, int, error) {
	return []byte("<html></html>"), int(d), nil
}

func TestHealthCheckBossAdapter(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"reachable", http.StatusOK, "healthy"},
		{"rejected", http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boss := scraper.NewBossScraper(scraper.DefaultBossOptions(statusDoer(tt.status)))
			o := newTestOrchestrator(t, testConfig(t), boss)
			h := o.HealthCheck(context.Background())
			assert.Equal(t, tt.want, h.Status)
		})
	}
}

func TestDefaultScrapersBossMode(t *testing.T) {
	cfg := testConfig(t)
	anti := NewAntiDetection()

	plain := DefaultScrapers(cfg, nil, anti)
	require.Len(t, plain, 2)
	assert.IsType(t, &scraper.BossScraper{}, plain[0])
	assert.IsType(t, &scraper.LagouScraper{}, plain[1])

	cfg.BossBrowser = true
	cfg.EnableGeneric = true
	browser := DefaultScrapers(cfg, nil, anti)
	require.Len(t, browser, 5)
	assert.IsType(t, &scraper.BossBrowserScraper{}, browser[0])
	for _, a := range browser {
		require.NoError(t, a.Close(), "no browser is launched until the first scrape")
	}
}

func TestFromAppConfigBrowserSwitches(t *testing.T) {
	oc := FromAppConfig(&config.Config{BossBrowser: true, Headless: true, ProxyPool: []string{"http://p:1"}})
	assert.True(t, oc.BossBrowser)
	assert.True(t, oc.Headless)
	assert.True(t, oc.UseProxy)
}

func TestNewSharesAntiDetection(t *testing.T) {
	o := New(testConfig(t), WithScrapers(&fakeScraper{site: scraper.SiteBoss, fn: alwaysOK}))
	require.NotNil(t, o.multi.anti)
	assert.NotZero(t, o.multi.antiDelay())
}

func TestSupportHelpers(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t), &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK})
	assert.True(t, o.IsURLSupported("https://www.liepin.com/job/1.shtml"))
	assert.False(t, o.IsURLSupported("https://example.com"))

	cfg := testConfig(t)
	cfg.EnableMonitoring = false
	assert.Nil(t, newTestOrchestrator(t, cfg, &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK}).PerformanceStats())
}

func TestCloseClosesAdapters(t *testing.T) {
	a := &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK}
	b := &fakeScraper{site: scraper.SiteLagou, fn: alwaysOK, closeErr: errors.New("chrome gone")}
	o := newTestOrchestrator(t, testConfig(t), a, b)

	assert.EqualError(t, o.Close(), "chrome gone")
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
}

func TestScrapeSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `<a href="/job_detail/1.html">a</a><a href="/job_detail/2.html">b</a>`)
			return
		}
		fmt.Fprint(w, `<p>empty</p>`)
	}))
	defer srv.Close()

	f := &fakeScraper{site: scraper.SiteBoss, fn: alwaysOK}
	o := newTestOrchestrator(t, testConfig(t), f)

	results, err := o.ScrapeSearch(context.Background(), srv.URL+"/web/geek/job?query=go", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// The test server is not a recruiting site, so every detail URL is rejected.
	for _, r := range results {
		assert.Equal(t, "不支持的招聘网站", r.Error)
	}
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestScrapeURLHelper(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	f := &fakeScraper{site: scraper.SiteBoss, fn: func(_ int, u string) scraper.Result {
		mu.Lock()
		seen = append(seen, u)
		mu.Unlock()
		return okJob(u)
	}}
	res := ScrapeURL(context.Background(), bossURL, testConfig(t), WithScrapers(f))
	assert.True(t, res.Success)
	assert.True(t, f.closed.Load())
	assert.Equal(t, []string{bossURL}, seen)
}
