// Package prompts implements MCP prompt handlers for the thread
// session protocol.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// PickupPrompt handles the thread-pickup MCP prompt: recover open
// threads at the start of a session.
type PickupPrompt struct{}

// NewPickupPrompt creates a PickupPrompt.
func NewPickupPrompt() *PickupPrompt {
	return &PickupPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *PickupPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("thread-pickup",
		mcp.WithPromptDescription(
			"Recover open work items from previous sessions. "+
				"Lists tracked threads and suggests where to pick up.",
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project to recover threads for"),
		),
	)
}

// Handle processes the thread-pickup prompt request.
func (p *PickupPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project := ""
	if args := req.Params.Arguments; args != nil {
		project = args["project"]
	}

	projectClause := ""
	if project != "" {
		projectClause = fmt.Sprintf(" with project='%s'", project)
	}

	return &mcp.GetPromptResult{
		Description: "Recover open threads",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I'm starting a new session. Please:\n"+
						"1. Run `thread_list`%s to recover open work items from previous sessions\n"+
						"2. Summarize what's outstanding, grouped by lifecycle state\n"+
						"3. Point out anything in the cooling or dormant buckets that looks at risk of being forgotten\n"+
						"4. Suggest which thread to pick up first and why",
					projectClause,
				)),
			},
		},
	}, nil
}
