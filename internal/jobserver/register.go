// Package jobserver exposes scraping, job storage, match analysis and
// greeting generation as MCP tools.
package jobserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_resume/internal/agents"
	"github.com/anatolykoptev/go_resume/internal/analyzer"
	"github.com/anatolykoptev/go_resume/internal/greeting"
	"github.com/anatolykoptev/go_resume/internal/jobs"
	"github.com/anatolykoptev/go_resume/internal/orchestrator"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Deps are the services behind the tools.
type Deps struct {
	DB         *storage.DB
	Scraper    *orchestrator.Orchestrator
	Jobs       *jobs.Manager
	Analyzer   *analyzer.Service
	Agents     *agents.Manager
	Integrator *agents.Integrator
	Greeting   *greeting.Generator
}

// ToolNames lists the registered tools in registration order.
var ToolNames = []string{
	"scrape_job", "scrape_search", "scraping_health",
	"list_jobs", "analyze_match", "recommend_agent", "generate_greeting",
}

// RegisterTools registers every tool on server.
func RegisterTools(server *mcp.Server, d *Deps) {
	registerScrapeJob(server, d)
	registerScrapeSearch(server, d)
	registerScrapingHealth(server, d)
	registerListJobs(server, d)
	registerAnalyzeMatch(server, d)
	registerRecommendAgent(server, d)
	registerGenerateGreeting(server, d)
}
