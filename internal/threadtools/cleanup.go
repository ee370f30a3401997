package threadtools

import (
	"context"
	"fmt"
	"strings"

	"tendril/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

// CleanupTool handles the thread_cleanup MCP tool.
type CleanupTool struct {
	engine *engine.Engine
}

// NewCleanupTool creates a CleanupTool.
func NewCleanupTool(e *engine.Engine) *CleanupTool {
	return &CleanupTool{engine: e}
}

// Definition returns the MCP tool definition for thread_cleanup.
func (t *CleanupTool) Definition() mcp.Tool {
	return mcp.NewTool("thread_cleanup",
		mcp.WithDescription(
			"Triage all open threads into lifecycle buckets (emerging/active/"+
				"cooling/dormant) for review. With auto_archive, threads dormant "+
				"for 30+ days are bulk-archived first.",
		),
		mcp.WithString("project",
			mcp.Description("Project name to filter by"),
		),
		mcp.WithBoolean("auto_archive",
			mcp.Description("Archive threads dormant for 30+ days (default false)"),
		),
	)
}

// Handle processes the thread_cleanup tool call.
func (t *CleanupTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := t.engine.CleanupThreads(ctx, engine.CleanupParams{
		Project:     req.GetString("project", ""),
		AutoArchive: req.GetBool("auto_archive", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clean up threads: %v", err)), nil
	}

	var b strings.Builder
	if result.ArchivedCount > 0 {
		fmt.Fprintf(&b, "Archived %d dormant thread(s): %s\n\n", result.ArchivedCount, strings.Join(result.ArchivedIDs, ", "))
	}
	fmt.Fprintf(&b, "Triage (source: %s)\n", result.Source)
	writeBucket(&b, "Emerging", result.Report.Emerging)
	writeBucket(&b, "Active", result.Report.Active)
	writeBucket(&b, "Cooling", result.Report.Cooling)
	writeBucket(&b, "Dormant", result.Report.Dormant)
	return mcp.NewToolResultText(b.String()), nil
}

func writeBucket(b *strings.Builder, name string, entries []engine.TriageEntry) {
	fmt.Fprintf(b, "\n%s (%d):", name, len(entries))
	for _, e := range entries {
		fmt.Fprintf(b, "\n  %s — %s (vitality %.2f)", e.Thread.ID, e.Thread.Text, e.Vitality)
	}
	if len(entries) == 0 {
		b.WriteString(" none")
	}
	b.WriteString("\n")
}
