package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/agents"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

func (a *app) loadPair(ctx context.Context, jobID, resumeID int64) (*storage.Job, *storage.Resume, error) {
	job, err := a.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	var res *storage.Resume
	if resumeID > 0 {
		res, err = a.resumes.Get(ctx, resumeID)
	} else {
		res, err = a.resumes.Default(ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	return job, res, nil
}

func (a *app) agentRequest(ctx context.Context, jobID, resumeID int64) (agents.Request, error) {
	job, res, err := a.loadPair(ctx, jobID, resumeID)
	if err != nil {
		return agents.Request{}, err
	}
	return agents.Request{
		JobID:          job.ID,
		ResumeID:       res.ID,
		JobDescription: job.Description + "\n" + job.Requirements,
		ResumeContent:  res.Content,
		JobSkills:      job.Skills,
		ResumeSkills:   res.Skills,
	}, nil
}

func analyzeCmd(a *app) *cobra.Command {
	var (
		jobID, resumeID, agentID int64
		recommend                bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze how well a resume matches a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if agentID > 0 || recommend {
				req, err := a.agentRequest(ctx, jobID, resumeID)
				if err != nil {
					return err
				}
				req.ForceAgentID = agentID
				r, err := a.integrator.AnalyzeWithRecommended(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			}
			r, err := a.analyzer.AnalyzeStored(ctx, jobID, resumeID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&jobID, "job", 0, "job id")
	f.Int64Var(&resumeID, "resume", 0, "resume id (default resume when omitted)")
	f.Int64Var(&agentID, "agent", 0, "run this agent instead of the matching engine")
	f.BoolVar(&recommend, "recommend", false, "run the agent recommended for the job")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func agentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage analysis agents",
	}
	cmd.AddCommand(agentsListCmd(a), agentsCreateCmd(a), agentsDeleteCmd(a), agentsRecommendCmd(a),
		agentsCompareCmd(a), agentsRateCmd(a), agentsStatsCmd(a))
	return cmd
}

func agentsListCmd(a *app) *cobra.Command {
	var (
		agentType       string
		builtin, custom bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.agents.List(cmd.Context(), agentType, builtin, custom)
			if err != nil {
				return err
			}
			for _, ag := range list {
				kind := "custom"
				if ag.IsBuiltin {
					kind = "builtin"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\tused %d\trating %.1f\n",
					ag.ID, ag.Type, kind, ag.Name, ag.UsageCount, ag.AverageRating)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&agentType, "type", "", "filter by type: "+strings.Join(typeNames(), ", "))
	f.BoolVar(&builtin, "builtin", true, "include built-in agents")
	f.BoolVar(&custom, "custom", true, "include custom agents")
	return cmd
}

func typeNames() []string {
	out := make([]string, len(agents.Types))
	for i, t := range agents.Types {
		out[i] = string(t)
	}
	return out
}

func agentsCreateCmd(a *app) *cobra.Command {
	var in agents.CreateInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a custom agent from a prompt template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ag, err := a.agents.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agent %d created: %s\n", ag.ID, ag.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "agent name")
	f.StringVar(&in.Description, "description", "", "agent description")
	f.StringVar(&in.Type, "type", string(agents.TypeGeneral), "agent type")
	f.StringVar(&in.PromptTemplate, "template", "", "prompt template; must contain {job_description} and {resume_content}")
	return cmd
}

func agentsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "agent_id")
			if err != nil {
				return err
			}
			ok, err := a.agents.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("agent %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agent %d deleted\n", id)
			return nil
		},
	}
}

func agentsRecommendCmd(a *app) *cobra.Command {
	var jobID int64
	cmd := &cobra.Command{
		Use:   "recommend [job description]",
		Short: "Recommend an agent for a job description or a stored job",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := strings.Join(args, " ")
			if jobID > 0 {
				j, err := a.jobs.Get(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				desc = j.Description + "\n" + j.Requirements
			}
			if strings.TrimSpace(desc) == "" {
				return fmt.Errorf("provide a job description or --job")
			}
			ag, err := a.agents.Recommend(cmd.Context(), desc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", ag.ID, ag.Type, ag.Name)
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "use a stored job's description")
	return cmd
}

func agentsCompareCmd(a *app) *cobra.Command {
	var jobID, resumeID int64
	cmd := &cobra.Command{
		Use:   "compare <agent-id...>",
		Short: "Run several agents on the same job and resume",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, s := range args {
				id, err := parseID(s, "agent_id")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			req, err := a.agentRequest(cmd.Context(), jobID, resumeID)
			if err != nil {
				return err
			}
			r, err := a.integrator.Compare(cmd.Context(), req, ids)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "job id")
	cmd.Flags().Int64Var(&resumeID, "resume", 0, "resume id (default resume when omitted)")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func agentsRateCmd(a *app) *cobra.Command {
	var feedback string
	cmd := &cobra.Command{
		Use:   "rate <usage-id> <1-5>",
		Short: "Rate an agent run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "usage_id")
			if err != nil {
				return err
			}
			rating, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid rating %q: %w", args[1], err)
			}
			if err := a.agents.RateUsage(cmd.Context(), id, rating, feedback); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "usage %d rated %.1f\n", id, rating)
			return nil
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "free-form feedback")
	return cmd
}

func agentsStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <id>",
		Short: "Show usage statistics for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "agent_id")
			if err != nil {
				return err
			}
			st, err := a.agents.Statistics(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}
