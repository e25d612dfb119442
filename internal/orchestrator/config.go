// Package orchestrator dispatches job URLs to site adapters with retries,
// anti-detection pacing, data validation and persisted scrape statistics.
package orchestrator

import (
	"time"

	"github.com/anatolykoptev/go_resume/internal/config"
)

// Config controls scraping behaviour.
type Config struct {
	MaxRetries       int
	RetryDelay       time.Duration
	Timeout          time.Duration
	ConcurrentLimit  int
	UseProxy         bool
	ProxyPool        []string
	EnableMonitoring bool
	DataValidation   bool
	Headless         bool
	UserDataDir      string
	BrowserBin       string
	StatsFile        string

	VerifyTimeout time.Duration
	VerifyPoll    time.Duration

	// SiteInterval is the minimum spacing between requests to one site.
	// Zero disables per-site pacing.
	SiteInterval time.Duration

	// EnableGeneric registers readability-based adapters for sites
	// without a dedicated scraper.
	EnableGeneric bool

	// BossBrowser renders BOSS直聘 pages in Chromium instead of fetching
	// them over HTTP.
	BossBrowser bool
}

// DefaultConfig mirrors the application defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		Timeout:          30 * time.Second,
		ConcurrentLimit:  3,
		EnableMonitoring: true,
		DataValidation:   true,
		StatsFile:        "scraping_stats.json",
		VerifyTimeout:    5 * time.Minute,
		VerifyPoll:       3 * time.Second,
		SiteInterval:     time.Second,
	}
}

// FromAppConfig derives scraping settings from the loaded application config.
func FromAppConfig(c *config.Config) Config {
	oc := DefaultConfig()
	oc.MaxRetries = c.MaxRetries
	oc.RetryDelay = c.RetryDelay
	oc.Timeout = c.RequestTimeout
	oc.ConcurrentLimit = c.ConcurrentLimit
	oc.ProxyPool = c.ProxyPool
	oc.UseProxy = len(c.ProxyPool) > 0
	oc.EnableMonitoring = c.EnableMonitoring
	oc.DataValidation = c.DataValidation
	oc.Headless = c.Headless
	oc.UserDataDir = c.UserDataDir
	oc.BrowserBin = c.BrowserBin
	oc.StatsFile = c.StatsFile
	oc.VerifyTimeout = c.VerifyTimeout
	oc.VerifyPoll = c.VerifyPollInterval
	oc.EnableGeneric = c.EnableGeneric
	oc.BossBrowser = c.BossBrowser
	return oc
}
