package threadtools

import (
	"context"
	"fmt"
	"strings"

	"tendril/internal/engine"
	"tendril/internal/thread"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the thread_list MCP tool.
type ListTool struct {
	engine *engine.Engine
}

// NewListTool creates a ListTool.
func NewListTool(e *engine.Engine) *ListTool {
	return &ListTool{engine: e}
}

// Definition returns the MCP tool definition for thread_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("thread_list",
		mcp.WithDescription(
			"List tracked threads, reconciled across the remote store, historical "+
				"session records, and the local cache. Each thread is annotated with "+
				"its lifecycle state (emerging/active/cooling/dormant).",
		),
		mcp.WithString("project",
			mcp.Description("Project name to filter by"),
		),
		mcp.WithString("status",
			mcp.Description("Restrict to one status: open, resolved, or archived"),
			mcp.Enum("open", "resolved", "archived"),
		),
		mcp.WithBoolean("include_resolved",
			mcp.Description("Include resolved threads alongside open ones (default false; ignored when status is set)"),
		),
	)
}

// Handle processes the thread_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := thread.Status(req.GetString("status", ""))
	switch status {
	case "", thread.StatusOpen, thread.StatusResolved, thread.StatusArchived:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q: use open, resolved, or archived", status)), nil
	}

	result, err := t.engine.ListThreads(ctx, engine.ListParams{
		Project:         req.GetString("project", ""),
		Status:          status,
		IncludeResolved: req.GetBool("include_resolved", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list threads: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d open / %d resolved (source: %s)\n", result.TotalOpen, result.TotalResolved, result.Source)
	if len(result.Threads) == 0 {
		b.WriteString("No threads tracked.")
		return mcp.NewToolResultText(b.String()), nil
	}

	for _, th := range result.Threads {
		cls := t.engine.Classify(th)
		fmt.Fprintf(&b, "\n[%s] %s — %s", cls.Status, th.ID, th.Text)
		if th.LinearIssue != "" {
			fmt.Fprintf(&b, " (%s)", th.LinearIssue)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
