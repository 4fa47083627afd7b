// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes corpus search and grounded answering to LLM agents via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/stillpoint/stillpoint/internal/config"
	"github.com/stillpoint/stillpoint/internal/core"
	"github.com/stillpoint/stillpoint/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs stillpoint as an MCP (Model Context Protocol) server over stdio,
exposing search_corpus and ask_grounded tools to agents.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an agent host)
  stillpoint mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "stillpoint": {
  #       "command": "stillpoint",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && verbose {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServices(true, true); err != nil {
		return err
	}

	retriever, client, err := newRetriever(cfg)
	if err != nil {
		return err
	}
	responder := core.NewGroundedResponder(retriever, client, cfg.GenerateTimeout)

	server := mcpserver.NewMCPServer(
		"Stillpoint",
		versionInfo.Version,
	)

	mcp.RegisterTools(server, retriever, responder)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("Stillpoint MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, exiting")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
