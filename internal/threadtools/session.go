package threadtools

import (
	"context"
	"fmt"

	"tendril/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

// SessionCloseTool handles the thread_session_close MCP tool.
type SessionCloseTool struct {
	engine *engine.Engine
}

// NewSessionCloseTool creates a SessionCloseTool.
func NewSessionCloseTool(e *engine.Engine) *SessionCloseTool {
	return &SessionCloseTool{engine: e}
}

// Definition returns the MCP tool definition for thread_session_close.
func (t *SessionCloseTool) Definition() mcp.Tool {
	return mcp.NewTool("thread_session_close",
		mcp.WithDescription(
			"Record the end of a session. A snapshot of the current open-thread "+
				"set is embedded in the session record, which later serves as a "+
				"reconciliation source when the remote store is unreachable.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier to close"),
		),
		mcp.WithString("project",
			mcp.Description("Project name"),
		),
		mcp.WithString("summary",
			mcp.Description("Summary of what the session accomplished"),
		),
		mcp.WithBoolean("close_compliance",
			mcp.Description("Whether the close protocol was followed; non-compliant snapshots are ignored during reconciliation (default true)"),
		),
	)
}

// Handle processes the thread_session_close tool call.
func (t *SessionCloseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	count, err := t.engine.CloseSession(ctx, engine.CloseSessionParams{
		SessionID:       sessionID,
		Project:         req.GetString("project", ""),
		Summary:         req.GetString("summary", ""),
		CloseCompliance: req.GetBool("close_compliance", true),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to close session: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Session %q closed with a snapshot of %d open thread(s).", sessionID, count,
	)), nil
}
