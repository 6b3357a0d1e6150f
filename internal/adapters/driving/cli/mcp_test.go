package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPCmd_Structure(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)
	assert.Equal(t, "serve", mcpServeCmd.Use)

	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)
}

func TestMCPServeCmd_HelpMentionsClaudeDesktop(t *testing.T) {
	assert.Contains(t, mcpServeCmd.Long, "claude_desktop_config.json")
	assert.Contains(t, mcpServeCmd.Long, "clausewise mcp serve --port 8080")
}

func TestMCPServeCmd_RequiresLegalService(t *testing.T) {
	_, restore := setupTestServices()
	defer restore()
	legalService = nil

	_, err := execute(t, "mcp", "serve")

	assert.EqualError(t, err, "legal service not configured")
}
