package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across scrapers and LLM clients.
var metrics struct {
	ScrapeAttempts      atomic.Int64
	ScrapeSuccesses     atomic.Int64
	ScrapeFailures      atomic.Int64
	BlockedResponses    atomic.Int64
	FetchRequests       atomic.Int64
	FetchErrors         atomic.Int64
	SearchPages         atomic.Int64
	BrowserPages        atomic.Int64
	ManualVerifications atomic.Int64
	LLMCalls            atomic.Int64
	LLMErrors           atomic.Int64
}

var metricKeys = []string{
	"scrape_attempts", "scrape_successes", "scrape_failures",
	"blocked_responses", "fetch_requests", "fetch_errors",
	"search_pages", "browser_pages", "manual_verifications",
	"llm_calls", "llm_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"scrape_attempts":      metrics.ScrapeAttempts.Load(),
		"scrape_successes":     metrics.ScrapeSuccesses.Load(),
		"scrape_failures":      metrics.ScrapeFailures.Load(),
		"blocked_responses":    metrics.BlockedResponses.Load(),
		"fetch_requests":       metrics.FetchRequests.Load(),
		"fetch_errors":         metrics.FetchErrors.Load(),
		"search_pages":         metrics.SearchPages.Load(),
		"browser_pages":        metrics.BrowserPages.Load(),
		"manual_verifications": metrics.ManualVerifications.Load(),
		"llm_calls":            metrics.LLMCalls.Load(),
		"llm_errors":           metrics.LLMErrors.Load(),
		"cache_hits":           hits,
		"cache_misses":         misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrScrapeAttempt()      { metrics.ScrapeAttempts.Add(1) }
func IncrScrapeSuccess()      { metrics.ScrapeSuccesses.Add(1) }
func IncrScrapeFailure()      { metrics.ScrapeFailures.Add(1) }
func IncrBlocked()            { metrics.BlockedResponses.Add(1) }
func IncrSearchPage()         { metrics.SearchPages.Add(1) }
func IncrBrowserPage()        { metrics.BrowserPages.Add(1) }
func IncrManualVerification() { metrics.ManualVerifications.Add(1) }
func IncrLLMCall()            { metrics.LLMCalls.Add(1) }
func IncrLLMError()           { metrics.LLMErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
