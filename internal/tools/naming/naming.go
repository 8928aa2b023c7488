// Package naming resolves tool names for registration and policy
// matching. Core tools register under their bare name (get_file,
// bash_command, insert, …); tools backed by an MCP server are registered
// under an opaque "mcp_<server>_<tool>" name so approval policies and
// allowlists can target a whole server with "mcp_<server>_*" without the
// framework ever needing to understand the tool's actual schema.
package naming

import (
	"regexp"
	"strings"
)

// MCPPrefix marks a tool name as an opaque passthrough to an MCP server.
const MCPPrefix = "mcp_"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// MCPToolName builds the opaque registered name for a tool exposed by an
// MCP server, sanitizing both components so the result is always a valid
// provider tool-use name.
func MCPToolName(serverName, toolName string) string {
	return MCPPrefix + sanitize(serverName) + "_" + sanitize(toolName)
}

// IsMCPTool reports whether name was produced by MCPToolName.
func IsMCPTool(name string) bool {
	return strings.HasPrefix(name, MCPPrefix)
}

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	s = strings.ToLower(s)
	if s == "" {
		s = "x"
	}
	return s
}
