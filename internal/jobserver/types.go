package jobserver

import (
	"github.com/anatolykoptev/go_resume/internal/agents"
	"github.com/anatolykoptev/go_resume/internal/analyzer"
	"github.com/anatolykoptev/go_resume/internal/orchestrator"
	"github.com/anatolykoptev/go_resume/internal/scraper"
	"github.com/anatolykoptev/go_resume/internal/storage"
	"github.com/anatolykoptev/go_resume/internal/toolutil"
)

// ScrapeJobInput is the scrape_job tool input.
type ScrapeJobInput struct {
	URLs []string `json:"urls" jsonschema:"Job detail URLs (BOSS直聘, 拉勾, and optionally 智联/猎聘/前程无忧)"`
	Save bool     `json:"save,omitempty" jsonschema:"Store successful results in the local job database"`
}

// ScrapeJobOutput is the scrape_job tool output.
type ScrapeJobOutput struct {
	Results []scraper.Result `json:"results"`
	Summary toolutil.Summary `json:"summary"`
	SavedID []int64          `json:"saved_ids,omitempty"`
}

// ScrapeSearchInput is the scrape_search tool input.
type ScrapeSearchInput struct {
	URL      string `json:"url" jsonschema:"Search results page URL"`
	MaxPages int    `json:"max_pages,omitempty" jsonschema:"Listing pages to crawl (default 1, max 10)"`
	Save     bool   `json:"save,omitempty" jsonschema:"Store successful results in the local job database"`
}

// HealthInput is the scraping_health tool input.
type HealthInput struct{}

// ListJobsInput is the list_jobs tool input.
type ListJobsInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status: active, archived, applied"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum jobs to return (default 20, max 200)"`
}

// ListJobsOutput is the list_jobs tool output.
type ListJobsOutput struct {
	Jobs  []storage.Job `json:"jobs"`
	Total int           `json:"total"`
}

// AnalyzeMatchInput is the analyze_match tool input.
type AnalyzeMatchInput struct {
	JobID     int64  `json:"job_id" jsonschema:"Stored job id"`
	ResumeID  int64  `json:"resume_id,omitempty" jsonschema:"Stored resume id (default resume when omitted)"`
	AgentID   int64  `json:"agent_id,omitempty" jsonschema:"Run this agent instead of the matching engine"`
	Recommend bool   `json:"recommend,omitempty" jsonschema:"Run the agent recommended for the job description"`
	Resume    string `json:"resume,omitempty" jsonschema:"Raw resume text used instead of a stored resume"`
}

// AnalyzeMatchOutput is the analyze_match tool output. Exactly one of
// Match and Agent is set.
type AnalyzeMatchOutput struct {
	Mode  string                   `json:"mode"`
	Match *analyzer.Result         `json:"match,omitempty"`
	Agent *agents.IntegratedResult `json:"agent,omitempty"`
}

// RecommendAgentInput is the recommend_agent tool input.
type RecommendAgentInput struct {
	JobDescription string `json:"job_description" jsonschema:"Job description text"`
}

// RecommendAgentOutput is the recommend_agent tool output.
type RecommendAgentOutput struct {
	Type  string        `json:"agent_type"`
	Agent *agents.Agent `json:"agent,omitempty"`
}

// GreetingInput is the generate_greeting tool input.
type GreetingInput struct {
	JobID      int64  `json:"job_id" jsonschema:"Stored job id"`
	ResumeID   int64  `json:"resume_id,omitempty" jsonschema:"Stored resume id (default resume when omitted)"`
	Style      string `json:"style,omitempty" jsonschema:"智能混合 (default), 正式商务, 友好专业, 简洁直接"`
	Length     string `json:"length,omitempty" jsonschema:"简短, 适中 (default), 详细"`
	CustomTone string `json:"custom_tone,omitempty" jsonschema:"Extra tone instructions"`
	Save       bool   `json:"save,omitempty" jsonschema:"Save the first greeting as the next version"`
}

// GreetingOutput is the generate_greeting tool output.
type GreetingOutput struct {
	Greetings []string `json:"greetings"`
	Source    string   `json:"source"`
	SavedID   int64    `json:"saved_id,omitempty"`
	Version   int      `json:"version,omitempty"`
}

// HealthOutput is the scraping_health tool output.
type HealthOutput struct {
	Health  orchestrator.Health `json:"health"`
	Metrics map[string]int64    `json:"metrics"`
}
