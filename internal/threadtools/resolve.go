package threadtools

import (
	"context"
	"fmt"

	"tendril/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

// ResolveTool handles the thread_resolve MCP tool.
type ResolveTool struct {
	engine *engine.Engine
}

// NewResolveTool creates a ResolveTool.
func NewResolveTool(e *engine.Engine) *ResolveTool {
	return &ResolveTool{engine: e}
}

// Definition returns the MCP tool definition for thread_resolve.
func (t *ResolveTool) Definition() mcp.Tool {
	return mcp.NewTool("thread_resolve",
		mcp.WithDescription(
			"Mark one thread as resolved, located by id or by fuzzy text match. "+
				"Resolving is idempotent: an already-resolved thread is returned "+
				"unchanged. Only the matched thread is ever modified.",
		),
		mcp.WithString("thread_id",
			mcp.Description("Exact thread id (takes priority over text_match)"),
		),
		mcp.WithString("text_match",
			mcp.Description("Case-insensitive substring to locate the thread by text"),
		),
		mcp.WithString("resolution_note",
			mcp.Description("Why/how the thread was resolved"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session performing the resolution"),
		),
		mcp.WithString("project",
			mcp.Description("Project name"),
		),
	)
}

// Handle processes the thread_resolve tool call.
func (t *ResolveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID := req.GetString("thread_id", "")
	textMatch := req.GetString("text_match", "")
	if threadID == "" && textMatch == "" {
		return mcp.NewToolResultError("either 'thread_id' or 'text_match' is required"), nil
	}

	resolved, err := t.engine.ResolveThread(ctx, req.GetString("project", ""), engine.ResolveRequest{
		ThreadID:  threadID,
		TextMatch: textMatch,
		Note:      req.GetString("resolution_note", ""),
		SessionID: req.GetString("session_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve thread: %v", err)), nil
	}
	if resolved == nil {
		return mcp.NewToolResultText("No matching thread found."), nil
	}

	response := fmt.Sprintf("Thread resolved: %q\nID: %s", resolved.Text, resolved.ID)
	if resolved.ResolutionNote != "" {
		response += fmt.Sprintf("\nNote: %s", resolved.ResolutionNote)
	}
	if resolved.ResolvedAt != nil {
		response += fmt.Sprintf("\nResolved at: %s", resolved.ResolvedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(response), nil
}
