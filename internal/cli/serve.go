package cli

import (
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/jobserver"
)

const serverName = "go_resume"

func serveCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = a.cfg.MCPPort
			}
			slog.Info("starting "+serverName, slog.String("port", port), slog.Bool("llm", a.llm != nil))

			server := mcp.NewServer(&mcp.Implementation{
				Name:    serverName,
				Version: Version,
			}, nil)
			jobserver.RegisterTools(server, &jobserver.Deps{
				DB:         a.db,
				Scraper:    a.scraper(cmd.ErrOrStderr()),
				Jobs:       a.jobs,
				Analyzer:   a.analyzer,
				Agents:     a.agents,
				Integrator: a.integrator,
				Greeting:   a.greeting,
			})
			slog.Info("tools registered", slog.Int("count", len(jobserver.ToolNames)))

			return mcpserver.Run(server, mcpserver.Config{
				Name:         serverName,
				Version:      Version,
				Port:         port,
				WriteTimeout: 600 * time.Second,
				Metrics:      engine.FormatMetrics,
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to RESUME_ASSISTANT_MCP_PORT)")
	cmd.Flags().BoolVar(&a.headless, "headless", false, "run the browser without a window")
	return cmd
}
