package jobserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_resume/internal/greeting"
	"github.com/anatolykoptev/go_resume/internal/storage"
)

func registerGenerateGreeting(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_greeting",
		Description: "Write up to three short Chinese opening messages to a recruiter for a stored job and resume. Falls back to fixed templates when the LLM is unavailable.",
	}, handleGenerateGreeting(d))
}

func handleGenerateGreeting(d *Deps) mcp.ToolHandlerFor[GreetingInput, GreetingOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GreetingInput) (*mcp.CallToolResult, GreetingOutput, error) {
		if input.JobID <= 0 {
			return nil, GreetingOutput{}, fmt.Errorf("job_id is required")
		}
		opts := greeting.DefaultOptions()
		if input.Style != "" {
			opts.Style = input.Style
		}
		if input.Length != "" {
			opts.Length = input.Length
		}
		opts.CustomTone = input.CustomTone

		res, job, resume, err := d.Greeting.GenerateFor(ctx, input.JobID, input.ResumeID, opts)
		if err != nil {
			return nil, GreetingOutput{}, err
		}
		out := GreetingOutput{Greetings: res.Greetings, Source: res.Source}
		if input.Save && len(res.Greetings) > 0 {
			g, err := d.Greeting.Save(ctx, job.ID, resume.ID, res.Greetings[0], false)
			if err != nil {
				return nil, out, err
			}
			out.SavedID, out.Version = g.ID, g.Version
		}
		return nil, out, nil
	}
}

func loadResume(ctx context.Context, d *Deps, id int64) (*storage.Resume, error) {
	if id > 0 {
		return d.DB.GetResume(ctx, id)
	}
	return d.DB.DefaultResume(ctx)
}
