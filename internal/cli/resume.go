package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/storage"
)

func printResumeLine(cmd *cobra.Command, r *storage.Resume) {
	mark := " "
	if r.IsDefault {
		mark = "*"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d\t%s\t%s\t%d skills\n", mark, r.ID, r.Name, r.FileType, len(r.Skills))
}

func resumeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Manage resumes",
	}
	cmd.AddCommand(resumeUploadCmd(a), resumeListCmd(a), resumeShowCmd(a), resumeDefaultCmd(a), resumeDeleteCmd(a))
	return cmd
}

func resumeUploadCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Parse and store a resume (pdf, md, txt)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resumes.Upload(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			printResumeLine(cmd, r)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the file name)")
	return cmd
}

func resumeListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored resumes; * marks the default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.resumes.List(cmd.Context())
			if err != nil {
				return err
			}
			for i := range list {
				printResumeLine(cmd, &list[i])
			}
			return nil
		},
	}
}

func resumeShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a resume as JSON (the default resume without an id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				r   *storage.Resume
				err error
			)
			if len(args) == 0 {
				r, err = a.resumes.Default(cmd.Context())
			} else {
				var id int64
				if id, err = parseID(args[0], "resume_id"); err != nil {
					return err
				}
				r, err = a.resumes.Get(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
}

func resumeDefaultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "default <id>",
		Short: "Make a resume the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "resume_id")
			if err != nil {
				return err
			}
			if err := a.resumes.SetDefault(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resume %d is now the default\n", id)
			return nil
		},
	}
}

func resumeDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "resume_id")
			if err != nil {
				return err
			}
			ok, err := a.resumes.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("resume %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resume %d deleted\n", id)
			return nil
		},
	}
}
