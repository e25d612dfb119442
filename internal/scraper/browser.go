package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/anatolykoptev/go_resume/internal/engine"
)

// Page is the subset of browser-tab behaviour the browser adapters need.
type Page interface {
	Navigate(ctx context.Context, rawURL string) error
	HTML() (string, error)
	Title() (string, error)
	Scroll(dy float64) error
	MoveMouse(x, y float64) error
	Close() error
}

// Browser opens pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// BrowserOptions configures the Chromium launch.
type BrowserOptions struct {
	Headless    bool
	UserDataDir string
	Bin         string
	UserAgent   string
}

// stealthScript hides the usual automation fingerprints before any page script runs.
const stealthScript = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['zh-CN', 'zh', 'en'] });
	window.chrome = { runtime: {} };
	const query = window.navigator.permissions.query;
	window.navigator.permissions.query = (p) =>
		p.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: query(p);
})();`

// RodBrowser drives a local Chromium through the DevTools protocol.
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	ua       string
}

// LaunchRod starts Chromium and connects to it.
func LaunchRod(ctx context.Context, o BrowserOptions) (*RodBrowser, error) {
	l := launcher.New().
		Headless(o.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", "1920,1080").
		Set("lang", "zh-CN")
	if o.UserDataDir != "" {
		l = l.UserDataDir(o.UserDataDir)
	}
	if o.Bin != "" {
		l = l.Bin(o.Bin)
	}
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &RodBrowser{browser: b, launcher: l, ua: o.UserAgent}, nil
}

// NewPage opens a blank tab with stealth patches, viewport and locale applied.
func (r *RodBrowser) NewPage(ctx context.Context) (Page, error) {
	p, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if _, err := p.EvalOnNewDocument(stealthScript); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("stealth script: %w", err)
	}
	if r.ua != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      r.ua,
			AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
		}); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1920, Height: 1080, DeviceScaleFactor: 1,
	}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return &rodPage{page: p.Context(ctx)}, nil
}

// Close shuts the browser down and kills the launched process.
func (r *RodBrowser) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, rawURL string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(rawURL); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) HTML() (string, error) { return p.page.HTML() }

func (p *rodPage) Title() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *rodPage) Scroll(dy float64) error { return p.page.Mouse.Scroll(0, dy, 4) }

func (p *rodPage) MoveMouse(x, y float64) error {
	return p.page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

func (p *rodPage) Close() error { return p.page.Close() }

// LaunchFunc starts a browser.
type LaunchFunc func(ctx context.Context, o BrowserOptions) (Browser, error)

// RodLauncher launches Chromium through go-rod.
func RodLauncher(ctx context.Context, o BrowserOptions) (Browser, error) {
	return LaunchRod(ctx, o)
}

// BrowserSession starts one browser on first use and shares it between the
// adapters holding it. Chromium locks its profile dir, so adapters with the
// same UserDataDir must share a session.
type BrowserSession struct {
	opts   BrowserOptions
	launch LaunchFunc

	mu      sync.Mutex
	browser Browser
}

// NewBrowserSession returns a session that launches lazily.
func NewBrowserSession(o BrowserOptions, launch LaunchFunc) *BrowserSession {
	return &BrowserSession{opts: o, launch: launch}
}

// Get returns the running browser, launching it if needed.
func (b *BrowserSession) Get(ctx context.Context) (Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}
	if b.launch == nil {
		return nil, errors.New("no browser launcher configured")
	}
	// The browser outlives the scrape that started it.
	br, err := b.launch(context.WithoutCancel(ctx), b.opts)
	if err != nil {
		return nil, err
	}
	b.browser = br
	return br, nil
}

// Close shuts the browser down. A later Get relaunches it.
func (b *BrowserSession) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

// BehaviorPlan describes one simulated reading session.
type BehaviorPlan struct {
	ScrollCount  int           `json:"scroll_count"`
	ScrollDelay  time.Duration `json:"scroll_delay"`
	RandomPauses int           `json:"random_pauses"`
	MouseMoves   int           `json:"move_count"`
	MouseDelay   time.Duration `json:"move_delay"`
	ReadingTime  time.Duration `json:"reading_time"`
}

// DefaultBehavior draws a plan with the same ranges as the orchestrator's
// anti-detection manager.
func DefaultBehavior() BehaviorPlan {
	return BehaviorPlan{
		ScrollCount:  2 + rand.IntN(4),
		ScrollDelay:  engine.UniformDuration(500*time.Millisecond, 2*time.Second),
		RandomPauses: 1 + rand.IntN(3),
		MouseMoves:   3 + rand.IntN(6),
		MouseDelay:   engine.UniformDuration(100*time.Millisecond, 500*time.Millisecond),
		ReadingTime:  engine.UniformDuration(5*time.Second, 15*time.Second),
	}
}

// actLikeReader scrolls, moves the mouse and pauses following plan.
// Scroll and mouse failures are logged and skipped.
func actLikeReader(ctx context.Context, page Page, plan BehaviorPlan, log *slog.Logger) error {
	for range plan.ScrollCount {
		if err := page.Scroll(float64(300 + rand.IntN(501))); err != nil {
			log.Debug("scroll failed", slog.Any("error", err))
		}
		if err := engine.Sleep(ctx, plan.ScrollDelay); err != nil {
			return err
		}
	}
	for range plan.RandomPauses {
		if err := engine.Sleep(ctx, plan.ScrollDelay); err != nil {
			return err
		}
	}
	for range plan.MouseMoves {
		x := float64(100 + rand.IntN(901))
		y := float64(100 + rand.IntN(501))
		if err := page.MoveMouse(x, y); err != nil {
			log.Debug("mouse move failed", slog.Any("error", err))
		}
		if err := engine.Sleep(ctx, plan.MouseDelay); err != nil {
			return err
		}
	}
	return engine.Sleep(ctx, plan.ReadingTime)
}
