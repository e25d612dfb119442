// Package cli is the command-line front-end. Every command is a thin
// adapter over the same services the MCP server uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/agents"
	"github.com/anatolykoptev/go_resume/internal/analyzer"
	"github.com/anatolykoptev/go_resume/internal/config"
	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/greeting"
	"github.com/anatolykoptev/go_resume/internal/jobs"
	"github.com/anatolykoptev/go_resume/internal/llm"
	"github.com/anatolykoptev/go_resume/internal/logging"
	"github.com/anatolykoptev/go_resume/internal/orchestrator"
	"github.com/anatolykoptev/go_resume/internal/resume"
	"github.com/anatolykoptev/go_resume/internal/scraper"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

// Version is set at build time.
var Version = "dev"

// app holds the services shared by every command. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	cfg        *config.Config
	db         *storage.DB
	llm        llm.Completer
	jobs       *jobs.Manager
	resumes    *resume.Processor
	analyzer   *analyzer.Service
	agents     *agents.Manager
	integrator *agents.Integrator
	greeting   *greeting.Generator

	orch     *orchestrator.Orchestrator
	headless bool
	in       io.Reader
	closers  []io.Closer
}

// newRoot builds the command tree over a fresh app.
func newRoot(in io.Reader) (*cobra.Command, *app) {
	a := &app{in: in}
	root := &cobra.Command{
		Use:           "go_resume",
		Short:         "Resume optimization assistant: job scraping, resume parsing and AI match analysis",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.AddCommand(
		scrapeCmd(a), searchCmd(a), sitesCmd(a), healthCmd(a), statsCmd(a),
		jobsCmd(a), resumeCmd(a), analyzeCmd(a), agentsCmd(a), greetCmd(a),
		settingsCmd(a), dbCmd(a), serveCmd(a),
	)
	return root, a
}

// Execute runs the command line in os.Args.
func Execute(ctx context.Context) error {
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	root, a := newRoot(in)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	defer func() {
		if err := a.close(); err != nil {
			slog.Warn("shutdown", slog.Any("error", err))
		}
	}()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
	}
	return err
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, logCloser)
	a.cfg = cfg

	engine.InitCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, max(cfg.CacheTTL/2, time.Minute))

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db)

	if c, err := llm.New(cfg); err != nil {
		slog.Warn("LLM unavailable, AI features fall back", slog.Any("error", err))
	} else {
		a.llm = c
	}

	a.jobs = jobs.NewManager(db)
	a.resumes = resume.NewProcessor(db)
	a.analyzer = analyzer.NewService(db, a.llm)
	a.agents = agents.NewManager(db, a.llm)
	a.integrator = agents.NewIntegrator(a.agents, db)
	a.greeting = greeting.NewGenerator(db, a.llm)
	return a.agents.EnsureBuiltins(ctx)
}

func (a *app) close() error {
	var first error
	if a.orch != nil {
		first = a.orch.Close()
		a.orch = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	engine.CloseCache()
	return first
}

// scraper builds the orchestrator on first use; browser-backed adapters
// are expensive and most commands never scrape.
func (a *app) scraper(out io.Writer) *orchestrator.Orchestrator {
	if a.orch == nil {
		cfg := orchestrator.FromAppConfig(a.cfg)
		if a.headless {
			cfg.Headless = true
		}
		a.orch = orchestrator.New(cfg, orchestrator.WithVerifier(&scraper.ConsoleVerifier{In: a.in, Out: out}))
	}
	return a.orch
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
