// ABOUTME: MCP tool handler implementations for search and grounded answering
// ABOUTME: Errors surface as tool results, never as protocol failures
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stillpoint/stillpoint/internal/core"
)

// Handlers contains the handler functions for the MCP tools
type Handlers struct {
	retriever *core.Retriever
	responder *core.GroundedResponder
}

// SearchCorpus handles the search_corpus tool
func (h *Handlers) SearchCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	limit := request.GetInt("max_results", core.DefaultSearchLimit)
	threshold := request.GetFloat("distance_threshold", core.DefaultDistanceThreshold)

	results := h.retriever.RetrieveWithOptions(ctx, query, limit, threshold)
	if len(results) == 0 {
		return mcp.NewToolResultText("No relevant content found."), nil
	}

	payload, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode results"), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// AskGrounded handles the ask_grounded tool
func (h *Handlers) AskGrounded(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	answer := h.responder.Respond(ctx, question)

	payload, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode answer"), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
