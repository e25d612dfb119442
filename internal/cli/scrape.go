package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/orchestrator"
	"github.com/anatolykoptev/go_resume/internal/scraper"
	"github.com/anatolykoptev/go_resume/internal/toolutil"
)

func scrapeCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "scrape <url...>",
		Short: "Scrape one or more job detail pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			o := a.scraper(out)
			var results []scraper.Result
			if len(args) == 1 {
				results = []scraper.Result{toolutil.ScrapeCached(cmd.Context(), args[0], o.ScrapeSingle)}
			} else {
				results = o.ScrapeMultiple(cmd.Context(), args)
			}
			return reportResults(cmd, a, results, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store successful results as jobs")
	cmd.Flags().BoolVar(&a.headless, "headless", false, "run the browser without a window")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var (
		pages int
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "search <url>",
		Short: "Crawl a search results page and scrape every job it links to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.scraper(cmd.OutOrStdout()).ScrapeSearch(cmd.Context(), args[0], toolutil.NormLimit(pages, 1, 10))
			if err != nil && len(results) == 0 {
				return err
			}
			return reportResults(cmd, a, results, save)
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "listing pages to crawl")
	cmd.Flags().BoolVar(&save, "save", false, "store successful results as jobs")
	cmd.Flags().BoolVar(&a.headless, "headless", false, "run the browser without a window")
	return cmd
}

func reportResults(cmd *cobra.Command, a *app, results []scraper.Result, save bool) error {
	out := cmd.OutOrStdout()
	saved := 0
	if save {
		saved = len(toolutil.ImportResults(cmd.Context(), a.jobs, results))
	}
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(out, "OK   %s | %s | %s | %s\n", r.Job.Title, r.Job.Company, r.Job.Salary, r.URL)
		} else {
			fmt.Fprintf(out, "FAIL %s: %s\n", r.URL, r.Error)
		}
	}
	s := toolutil.Summarize(results, saved)
	fmt.Fprintf(out, "total %d, ok %d, failed %d, saved %d\n", s.Total, s.Succeeded, s.Failed, s.Saved)
	return nil
}

func sitesCmd(*app) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List supported recruiting sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range scraper.AllSites {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check scraper availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := a.scraper(cmd.OutOrStdout()).HealthCheck(cmd.Context())
			return printJSON(cmd.OutOrStdout(), h)
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show persisted scraping statistics and process metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := orchestrator.NewMonitor(a.cfg.StatsFile).Report()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"scraping": report,
				"metrics":  engine.GetMetrics(),
			})
		},
	}
}
