package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// WrapupPrompt handles the thread-wrapup MCP prompt: resolve finished
// items and snapshot the open set before ending a session.
type WrapupPrompt struct{}

// NewWrapupPrompt creates a WrapupPrompt.
func NewWrapupPrompt() *WrapupPrompt {
	return &WrapupPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *WrapupPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("thread-wrapup",
		mcp.WithPromptDescription(
			"End-of-session protocol: resolve finished threads, track new "+
				"ones, and close the session with an open-thread snapshot.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Identifier of the session being closed"),
		),
	)
}

// Handle processes the thread-wrapup prompt request.
func (p *WrapupPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sessionID := "this session"
	if args := req.Params.Arguments; args != nil {
		if id, ok := args["session_id"]; ok && id != "" {
			sessionID = fmt.Sprintf("session '%s'", id)
		}
	}

	return &mcp.GetPromptResult{
		Description: "Close out the session",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"We're wrapping up %s. Please:\n"+
						"1. Run `thread_resolve` for every tracked item we finished, with a short resolution_note each\n"+
						"2. Run `thread_create` for any work we identified but didn't finish\n"+
						"3. Run `thread_cleanup` and tell me if the dormant bucket needs attention\n"+
						"4. Finally run `thread_session_close` with the session id to snapshot the open set",
					sessionID,
				)),
			},
		},
	}, nil
}
