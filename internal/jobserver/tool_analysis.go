package jobserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_resume/internal/agents"
	"github.com/anatolykoptev/go_resume/internal/analyzer"
)

func registerAnalyzeMatch(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_match",
		Description: "Analyze how well a resume matches a stored job. Uses the matching engine by default (skill, experience, education and fit scores with suggestions) or a prompt-template agent when agent_id or recommend is set. Results for stored resumes are saved.",
	}, handleAnalyzeMatch(d))
}

func handleAnalyzeMatch(d *Deps) mcp.ToolHandlerFor[AnalyzeMatchInput, AnalyzeMatchOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeMatchInput) (*mcp.CallToolResult, AnalyzeMatchOutput, error) {
		if input.JobID <= 0 {
			return nil, AnalyzeMatchOutput{}, fmt.Errorf("job_id is required")
		}
		job, err := d.Jobs.Get(ctx, input.JobID)
		if err != nil {
			return nil, AnalyzeMatchOutput{}, err
		}

		var (
			resumeID      int64
			resumeContent = strings.TrimSpace(input.Resume)
			resumeSkills  []string
		)
		if resumeContent == "" {
			res, err := loadResume(ctx, d, input.ResumeID)
			if err != nil {
				return nil, AnalyzeMatchOutput{}, err
			}
			resumeID, resumeContent, resumeSkills = res.ID, res.Content, res.Skills
		}

		if input.AgentID > 0 || input.Recommend {
			r, err := d.Integrator.AnalyzeWithRecommended(ctx, agents.Request{
				JobID:          job.ID,
				ResumeID:       resumeID,
				JobDescription: job.Description + "\n" + job.Requirements,
				ResumeContent:  resumeContent,
				JobSkills:      job.Skills,
				ResumeSkills:   resumeSkills,
				ForceAgentID:   input.AgentID,
			})
			if err != nil {
				return nil, AnalyzeMatchOutput{}, err
			}
			return nil, AnalyzeMatchOutput{Mode: "agent", Agent: r}, nil
		}

		r, err := d.Analyzer.Analyze(ctx, resumeContent, resumeID, analyzer.JobInfoFrom(job))
		if err != nil {
			return nil, AnalyzeMatchOutput{}, err
		}
		return nil, AnalyzeMatchOutput{Mode: "engine", Match: r}, nil
	}
}

func registerRecommendAgent(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_agent",
		Description: "Recommend the built-in analysis agent (general, technical, management, creative, sales) for a job description.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleRecommendAgent(d))
}

func handleRecommendAgent(d *Deps) mcp.ToolHandlerFor[RecommendAgentInput, RecommendAgentOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RecommendAgentInput) (*mcp.CallToolResult, RecommendAgentOutput, error) {
		if strings.TrimSpace(input.JobDescription) == "" {
			return nil, RecommendAgentOutput{}, fmt.Errorf("job_description is required")
		}
		a, err := d.Agents.Recommend(ctx, input.JobDescription)
		if err != nil {
			return nil, RecommendAgentOutput{}, err
		}
		return nil, RecommendAgentOutput{Type: string(agents.RecommendType(input.JobDescription)), Agent: a}, nil
	}
}
