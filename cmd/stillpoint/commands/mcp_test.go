// ABOUTME: Tests for the MCP command definition
// ABOUTME: Verifies command metadata without starting the stdio server
package commands

import (
	"strings"
	"testing"
)

func TestNewMCPCmd(t *testing.T) {
	cmd := NewMCPCmd()

	if cmd.Use != "mcp" {
		t.Errorf("Use = %q, want %q", cmd.Use, "mcp")
	}
	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	if !strings.Contains(cmd.Example, "mcpServers") {
		t.Error("Example should show the agent host configuration")
	}
	if cmd.RunE == nil {
		t.Error("RunE should be set")
	}
}
