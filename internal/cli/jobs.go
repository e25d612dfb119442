package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/apperr"
	"github.com/anatolykoptev/go_resume/internal/jobs"
	"github.com/anatolykoptev/go_resume/internal/storage"
	"github.com/anatolykoptev/go_resume/internal/toolutil"
)

func parseID(s, field string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(fmt.Sprintf("无效的ID: %q", s), field)
	}
	return id, nil
}

func printJobLine(cmd *cobra.Command, j *storage.Job) {
	fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\n", j.ID, j.Status, j.Title, j.Company, j.Salary)
}

func jobsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage target jobs",
	}
	cmd.AddCommand(jobsListCmd(a), jobsShowCmd(a), jobsAddCmd(a), jobsStatusCmd(a), jobsDeleteCmd(a), jobsSamplesCmd(a))
	return cmd
}

func jobsListCmd(a *app) *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := a.jobs.List(cmd.Context(), status)
			if err != nil {
				return err
			}
			for i := range all[:min(len(all), toolutil.NormLimit(limit, 50, 1000))] {
				printJobLine(cmd, &all[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, archived, applied)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum jobs to print")
	return cmd
}

func jobsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "job_id")
			if err != nil {
				return err
			}
			j, err := a.jobs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), j)
		},
	}
}

func jobsAddCmd(a *app) *cobra.Command {
	var in jobs.Input
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a job by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.jobs.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printJobLine(cmd, j)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "job title")
	f.StringVar(&in.Company, "company", "", "company name")
	f.StringVar(&in.Description, "description", "", "job description")
	f.StringVar(&in.Requirements, "requirements", "", "job requirements")
	f.StringVar(&in.Location, "location", "", "work location")
	f.StringVar(&in.Salary, "salary", "", "salary range, e.g. 20-35K")
	f.StringVar(&in.Experience, "experience", "", "experience requirement")
	f.StringVar(&in.SourceURL, "url", "", "source URL")
	return cmd
}

func jobsStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|archived|applied>",
		Short: "Change a job's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "job_id")
			if err != nil {
				return err
			}
			if err := a.jobs.SetStatus(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %d -> %s\n", id, args[1])
			return nil
		},
	}
}

func jobsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "job_id")
			if err != nil {
				return err
			}
			ok, err := a.jobs.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %d deleted\n", id)
			return nil
		},
	}
}

func jobsSamplesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "Create the demo jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, j := range a.jobs.CreateSampleJobs(cmd.Context()) {
				printJobLine(cmd, j)
			}
			return nil
		},
	}
}
