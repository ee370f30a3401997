// Package resources implements MCP resource handlers for thread state.
//
// Resources provide read-only data that the host can consume for
// context. They use URI-based addressing (tendril://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"tendril/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages thread resource endpoints.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// StatusResource returns the MCP resource definition for the reconciled
// thread view.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"tendril://threads/status",
		"Thread Status",
		mcp.WithResourceDescription("All tracked threads reconciled across sources, with open/resolved counts"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the reconciled thread list as JSON. Resolved
// threads are included so the host sees the full picture.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	result, err := h.engine.ListThreads(ctx, engine.ListParams{IncludeResolved: true})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling thread status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource carrying an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
