// ABOUTME: MCP tool definitions for the stillpoint stdio server
// ABOUTME: Exposes corpus search and grounded question answering to LLM agents
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/stillpoint/stillpoint/internal/core"
)

// RegisterTools registers the retrieval tools with the server
func RegisterTools(server *mcpserver.MCPServer, retriever *core.Retriever, responder *core.GroundedResponder) *Handlers {
	handlers := &Handlers{
		retriever: retriever,
		responder: responder,
	}

	server.AddTool(mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the mindfulness community archive for content relevant to a query. Returns ranked chunks with relevance scores and source attribution.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
					"default":     5,
				},
				"distance_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Maximum vector distance for a result to count as relevant (default: 0.7; lower distance means more similar)",
					"default":     0.7,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchCorpus)

	server.AddTool(mcp.Tool{
		Name:        "ask_grounded",
		Description: "Answer a mindfulness question grounded strictly in the community archive. Refuses when no relevant content exists.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskGrounded)

	return handlers
}
