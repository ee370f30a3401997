// Package threadtools provides the MCP tool handlers for the thread
// lifecycle engine.
//
// Each tool follows the same pattern as the rest of the server: a struct
// with the engine injected via constructor, Definition() returning the
// mcp.Tool schema, and Handle() processing the request. The handlers
// validate and format only; all semantics live in internal/engine.
package threadtools

import (
	"context"
	"fmt"

	"tendril/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

// CreateTool handles the thread_create MCP tool.
type CreateTool struct {
	engine *engine.Engine
}

// NewCreateTool creates a CreateTool with the given engine.
func NewCreateTool(e *engine.Engine) *CreateTool {
	return &CreateTool{engine: e}
}

// Definition returns the MCP tool definition for thread_create.
func (t *CreateTool) Definition() mcp.Tool {
	return mcp.NewTool("thread_create",
		mcp.WithDescription(
			"Track a new open work item (thread). Duplicate detection runs first: "+
				"if semantically identical text is already tracked, the existing thread "+
				"is touched instead of creating a second copy.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Human-readable description of the work item"),
		),
		mcp.WithString("linear_issue",
			mcp.Description("Linked Linear issue identifier (e.g. ENG-42)"),
		),
		mcp.WithString("project",
			mcp.Description("Project name"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to stamp as the thread's origin"),
		),
	)
}

// Handle processes the thread_create tool call.
func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	result, err := t.engine.CreateThread(ctx, engine.CreateParams{
		Text:        text,
		LinearIssue: req.GetString("linear_issue", ""),
		Project:     req.GetString("project", ""),
		SessionID:   req.GetString("session_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create thread: %v", err)), nil
	}

	if result.Deduplicated {
		response := fmt.Sprintf(
			"Duplicate of existing thread %s: %q\nDedup method: %s",
			result.MatchedThreadID, result.Thread.Text, result.DedupMethod,
		)
		if result.DedupMethod == "embedding" {
			response += fmt.Sprintf(" (similarity %.2f)", result.DedupSimilarity)
		}
		response += fmt.Sprintf("\nTouched instead of created (touch count now %d).", result.Thread.TouchCount)
		return mcp.NewToolResultText(response), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Thread created: %q\nID: %s\nDedup check: %s", result.Thread.Text, result.Thread.ID, result.DedupMethod,
	)), nil
}
