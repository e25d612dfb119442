// go_resume: resume optimization assistant.
//
// Scrapes job postings from Chinese recruiting sites, parses resumes and
// scores resume/job matches through an LLM. Runs as a CLI or, with the
// serve command, as an HTTP MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/anatolykoptev/go_resume/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
