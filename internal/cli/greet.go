package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/greeting"
)

func greetCmd(a *app) *cobra.Command {
	var (
		jobID, resumeID int64
		save, history   bool
	)
	opts := greeting.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "greet",
		Short: "Generate opening messages to a recruiter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if history {
				job, res, err := a.loadPair(ctx, jobID, resumeID)
				if err != nil {
					return err
				}
				list, err := a.greeting.History(ctx, job.ID, res.ID)
				if err != nil {
					return err
				}
				for _, g := range list {
					fmt.Fprintf(out, "v%d\t%s\t%s\n", g.Version, g.CreatedAt.Format("2006-01-02 15:04"), g.Content)
				}
				return nil
			}

			r, job, res, err := a.greeting.GenerateFor(ctx, jobID, resumeID, opts)
			if err != nil {
				return err
			}
			for i, g := range r.Greetings {
				fmt.Fprintf(out, "%d. %s\n", i+1, g)
			}
			fmt.Fprintf(out, "(source: %s)\n", r.Source)
			if save && len(r.Greetings) > 0 {
				g, err := a.greeting.Save(ctx, job.ID, res.ID, r.Greetings[0], false)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "saved greeting %d as version %d\n", g.ID, g.Version)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&jobID, "job", 0, "job id")
	f.Int64Var(&resumeID, "resume", 0, "resume id (default resume when omitted)")
	f.StringVar(&opts.Style, "style", opts.Style, "智能混合, 正式商务, 友好专业 or 简洁直接")
	f.StringVar(&opts.Length, "length", opts.Length, "简短, 适中 or 详细")
	f.StringVar(&opts.CustomTone, "tone", "", "extra tone instructions")
	f.BoolVar(&opts.IncludeSkills, "skills", opts.IncludeSkills, "mention matching skills")
	f.BoolVar(&opts.IncludeExperience, "experience", opts.IncludeExperience, "mention experience")
	f.BoolVar(&save, "save", false, "save the first greeting as the next version")
	f.BoolVar(&history, "history", false, "print saved greetings instead of generating")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}
