package agentwire

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jpmartel/agentwire/internal/toolsrv"
)

// ToolServer is an in-process tool server exposed to the agent through
// Options.ToolServers. The agent calls its tools over the control
// channel; handlers run in this process with no transport of their
// own.
type ToolServer = toolsrv.Server

// ToolHandler executes one tool call using the official MCP SDK
// request and result types.
type ToolHandler = toolsrv.Handler

// ToolRequest and ToolResult are the MCP SDK call types handlers work
// with.
type (
	ToolRequest = mcp.CallToolRequest
	ToolResult  = mcp.CallToolResult
)

// NewToolServer creates an empty tool server. Register tools with
// Register, then hand the server to Options.ToolServers keyed by a
// name the agent will address it by.
func NewToolServer(name, version string) *ToolServer {
	return toolsrv.New(name, version)
}

// NewTool describes one tool: its name, a description the agent reads
// when deciding to call it, and an input schema.
func NewTool(name, description string, schema *jsonschema.Schema) *mcp.Tool {
	return toolsrv.Tool(name, description, schema)
}

// ToolArgs extracts the call's input object from the request.
func ToolArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	return toolsrv.Args(req)
}

// TextResult builds a successful text result.
func TextResult(text string) *mcp.CallToolResult {
	return toolsrv.Text(text)
}

// ErrorResult builds a failed result carrying msg. Prefer this over
// returning a Go error from a handler: the agent sees the message and
// can react to it.
func ErrorResult(msg string) *mcp.CallToolResult {
	return toolsrv.Error(msg)
}

// ObjectSchema builds an object input schema from property names to
// Go-style type names ("string", "int", "float64", "bool").
func ObjectSchema(props map[string]string) *jsonschema.Schema {
	return toolsrv.ObjectSchema(props)
}
