package agents

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// compareConcurrency bounds the agents run at once by Compare.
const compareConcurrency = 3

// Integrator connects agent runs to the stored analyses.
type Integrator struct {
	agents *Manager
	db     *storage.DB
	log    *slog.Logger
}

// NewIntegrator returns an Integrator.
func NewIntegrator(m *Manager, db *storage.DB) *Integrator {
	return &Integrator{agents: m, db: db, log: logging.Component("agent_integrator")}
}

// Request is one agent analysis request. ForceAgentID skips recommendation.
type Request struct {
	JobID          int64
	ResumeID       int64
	JobDescription string
	ResumeContent  string
	JobSkills      []string
	ResumeSkills   []string
	ForceAgentID   int64
}

func (r Request) context() AnalysisContext {
	return AnalysisContext{
		JobID:          r.JobID,
		ResumeID:       r.ResumeID,
		JobDescription: r.JobDescription,
		ResumeContent:  r.ResumeContent,
		JobSkills:      r.JobSkills,
		ResumeSkills:   r.ResumeSkills,
	}
}

// IntegratedResult is the outcome of AnalyzeWithRecommended.
type IntegratedResult struct {
	Success       bool     `json:"success"`
	AnalysisID    int64    `json:"analysis_id,omitempty"`
	UsageID       int64    `json:"usage_id,omitempty"`
	AgentID       int64    `json:"agent_id"`
	AgentName     string   `json:"agent_name"`
	AgentType     string   `json:"agent_type"`
	Analysis      Analysis `json:"analysis"`
	RawResponse   string   `json:"raw_response,omitempty"`
	ExecutionTime float64  `json:"execution_time"`
	Error         string   `json:"error,omitempty"`
}

// AnalyzeWithRecommended runs the forced or recommended agent. A successful
// run over stored job and resume rows is saved as an analysis and linked to
// its usage record.
func (in *Integrator) AnalyzeWithRecommended(ctx context.Context, req Request) (*IntegratedResult, error) {
	var (
		agent *Agent
		err   error
	)
	if req.ForceAgentID > 0 {
		agent, err = in.agents.Get(ctx, req.ForceAgentID)
	} else {
		agent, err = in.agents.Recommend(ctx, req.JobDescription)
	}
	if err != nil {
		return nil, err
	}

	out, err := in.agents.AnalyzeWith(ctx, agent.ID, req.context())
	if err != nil {
		return nil, err
	}
	res := &IntegratedResult{
		Success:       out.Success,
		UsageID:       out.UsageID,
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		AgentType:     agent.Type,
		Analysis:      out.Analysis,
		RawResponse:   out.RawResponse,
		ExecutionTime: out.ExecutionTime,
		Error:         out.Error,
	}
	if !out.Success || req.JobID <= 0 || req.ResumeID <= 0 {
		return res, nil
	}

	agentID := agent.ID
	a := &storage.Analysis{
		JobID:           req.JobID,
		ResumeID:        req.ResumeID,
		AgentID:         &agentID,
		OverallScore:    out.Analysis.OverallScore,
		SkillMatchScore: out.Analysis.SkillMatchScore,
		ExperienceScore: out.Analysis.ExperienceScore,
		KeywordCoverage: out.Analysis.KeywordCoverage,
		MissingSkills:   out.Analysis.MissingSkills,
		Strengths:       out.Analysis.Strengths,
		Suggestions:     out.Analysis.Suggestions,
		RawResponse:     out.RawResponse,
		ExecutionTime:   out.ExecutionTime,
	}
	if res.AnalysisID, err = in.db.SaveAnalysis(ctx, a); err != nil {
		return res, err
	}
	u, err := in.db.GetUsage(ctx, out.UsageID)
	if err != nil {
		return res, err
	}
	u.AnalysisID = &res.AnalysisID
	return res, in.db.UpdateUsage(ctx, u)
}

// AgentRun is one successful run inside a comparison.
type AgentRun struct {
	AgentID       int64    `json:"agent_id"`
	AgentName     string   `json:"agent_name"`
	AgentType     string   `json:"agent_type"`
	Analysis      Analysis `json:"analysis"`
	ExecutionTime float64  `json:"execution_time"`
}

// ScoreStats summarises one score across runs.
type ScoreStats struct {
	Average  float64 `json:"average"`
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
	Variance float64 `json:"variance"`
}

// BestAgent is the run with the highest overall score.
type BestAgent struct {
	AgentName    string  `json:"agent_name"`
	AgentType    string  `json:"agent_type"`
	OverallScore float64 `json:"overall_score"`
}

// Comparison aggregates a set of runs.
type Comparison struct {
	Scores    map[string]ScoreStats `json:"scores"`
	BestAgent *BestAgent            `json:"best_agent,omitempty"`
}

// CompareResult is returned by Compare.
type CompareResult struct {
	Results    []AgentRun `json:"results"`
	Comparison Comparison `json:"comparison"`
}

// Compare runs every agent in agentIDs over the same inputs. Unknown
// agents and failed runs are left out of the results.
func (in *Integrator) Compare(ctx context.Context, req Request, agentIDs []int64) (*CompareResult, error) {
	runs := make([]*AgentRun, len(agentIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareConcurrency)
	for i, id := range agentIDs {
		g.Go(func() error {
			agent, err := in.agents.Get(gctx, id)
			if err != nil {
				in.log.Warn("compare: agent skipped", slog.Int64("agent", id), slog.Any("error", err))
				return nil
			}
			out, err := in.agents.AnalyzeWith(gctx, id, req.context())
			if err != nil || !out.Success {
				in.log.Warn("compare: agent run failed", slog.Int64("agent", id), slog.Any("error", err))
				return nil
			}
			runs[i] = &AgentRun{
				AgentID:       id,
				AgentName:     agent.Name,
				AgentType:     agent.Type,
				Analysis:      out.Analysis,
				ExecutionTime: out.ExecutionTime,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &CompareResult{Results: []AgentRun{}}
	for _, r := range runs {
		if r != nil {
			res.Results = append(res.Results, *r)
		}
	}
	res.Comparison = compare(res.Results)
	return res, nil
}

func compare(runs []AgentRun) Comparison {
	c := Comparison{Scores: map[string]ScoreStats{}}
	if len(runs) == 0 {
		return c
	}
	pick := map[string]func(Analysis) float64{
		"overall_score":     func(a Analysis) float64 { return a.OverallScore },
		"skill_match_score": func(a Analysis) float64 { return a.SkillMatchScore },
		"experience_score":  func(a Analysis) float64 { return a.ExperienceScore },
		"keyword_coverage":  func(a Analysis) float64 { return a.KeywordCoverage },
	}
	for name, get := range pick {
		vals := make([]float64, len(runs))
		for i, r := range runs {
			vals[i] = get(r.Analysis)
		}
		c.Scores[name] = stats(vals)
	}

	best := runs[0]
	for _, r := range runs[1:] {
		if r.Analysis.OverallScore > best.Analysis.OverallScore {
			best = r
		}
	}
	c.BestAgent = &BestAgent{AgentName: best.AgentName, AgentType: best.AgentType, OverallScore: best.Analysis.OverallScore}
	return c
}

// stats returns the mean, extremes and population variance of vals.
func stats(vals []float64) ScoreStats {
	s := ScoreStats{Max: math.Inf(-1), Min: math.Inf(1)}
	var sum float64
	for _, v := range vals {
		sum += v
		s.Max = max(s.Max, v)
		s.Min = min(s.Min, v)
	}
	s.Average = sum / float64(len(vals))
	for _, v := range vals {
		s.Variance += (v - s.Average) * (v - s.Average)
	}
	s.Variance /= float64(len(vals))
	return s
}
