package jobserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/scraper"
	"github.com/anatolykoptev/go_resume/internal/toolutil"
)

const maxScrapeURLs = 20

func registerScrapeJob(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "scrape_job",
		Description: "Scrape Chinese job postings (BOSS直聘, 拉勾 and, when enabled, 智联/猎聘/前程无忧) by detail URL. Returns structured job data (title, company, salary range, experience, education, skills). Optionally saves results to the local job database.",
	}, handleScrapeJob(d))
}

func handleScrapeJob(d *Deps) mcp.ToolHandlerFor[ScrapeJobInput, ScrapeJobOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScrapeJobInput) (*mcp.CallToolResult, ScrapeJobOutput, error) {
		if len(input.URLs) == 0 {
			return nil, ScrapeJobOutput{}, fmt.Errorf("urls is required")
		}
		if len(input.URLs) > maxScrapeURLs {
			return nil, ScrapeJobOutput{}, fmt.Errorf("at most %d urls per call", maxScrapeURLs)
		}

		var results []scraper.Result
		if len(input.URLs) == 1 {
			results = []scraper.Result{toolutil.ScrapeCached(ctx, input.URLs[0], d.Scraper.ScrapeSingle)}
		} else {
			results = d.Scraper.ScrapeMultiple(ctx, input.URLs)
		}

		out := saveResults(ctx, d, results, input.Save)
		slog.Info("scrape_job done", slog.Int("total", out.Summary.Total), slog.Int("ok", out.Summary.Succeeded))
		return nil, out, nil
	}
}

func registerScrapeSearch(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "scrape_search",
		Description: "Crawl a job search results page (and following pages), then scrape every job detail link found. Slow: detail pages are fetched sequentially with human-like pauses.",
	}, handleScrapeSearch(d))
}

func handleScrapeSearch(d *Deps) mcp.ToolHandlerFor[ScrapeSearchInput, ScrapeJobOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScrapeSearchInput) (*mcp.CallToolResult, ScrapeJobOutput, error) {
		if input.URL == "" {
			return nil, ScrapeJobOutput{}, fmt.Errorf("url is required")
		}
		results, err := d.Scraper.ScrapeSearch(ctx, input.URL, toolutil.NormLimit(input.MaxPages, 1, 10))
		if err != nil {
			if len(results) == 0 {
				return nil, ScrapeJobOutput{}, fmt.Errorf("search scrape failed: %w", err)
			}
			slog.Warn("scrape_search: partial results", slog.Any("error", err))
		}
		return nil, saveResults(ctx, d, results, input.Save), nil
	}
}

func saveResults(ctx context.Context, d *Deps, results []scraper.Result, save bool) ScrapeJobOutput {
	out := ScrapeJobOutput{Results: results}
	if save {
		for _, j := range toolutil.ImportResults(ctx, d.Jobs, results) {
			out.SavedID = append(out.SavedID, j.ID)
		}
	}
	out.Summary = toolutil.Summarize(results, len(out.SavedID))
	return out
}

func registerScrapingHealth(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "scraping_health",
		Description: "Report scraper availability, configuration, per-site success rates and process metrics.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleScrapingHealth(d))
}

func handleScrapingHealth(d *Deps) mcp.ToolHandlerFor[HealthInput, HealthOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input HealthInput) (*mcp.CallToolResult, HealthOutput, error) {
		return nil, HealthOutput{Health: d.Scraper.HealthCheck(ctx), Metrics: engine.GetMetrics()}, nil
	}
}
