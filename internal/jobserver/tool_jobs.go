package jobserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_resume/internal/storage"
	"github.com/anatolykoptev/go_resume/internal/toolutil"
)

func registerListJobs(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_jobs",
		Description: "List jobs stored in the local database, newest first. Filter by status (active, archived, applied).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleListJobs(d))
}

func handleListJobs(d *Deps) mcp.ToolHandlerFor[ListJobsInput, ListJobsOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListJobsInput) (*mcp.CallToolResult, ListJobsOutput, error) {
		all, err := d.Jobs.List(ctx, input.Status)
		if err != nil {
			return nil, ListJobsOutput{}, fmt.Errorf("list jobs: %w", err)
		}
		limit := toolutil.NormLimit(input.Limit, 20, 200)
		out := ListJobsOutput{Jobs: all[:min(len(all), limit)], Total: len(all)}
		if out.Jobs == nil {
			out.Jobs = []storage.Job{}
		}
		return nil, out, nil
	}
}
