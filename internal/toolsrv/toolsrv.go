// Package toolsrv implements in-process tool servers. The remote side
// tunnels MCP JSONRPC messages through mcp_message control requests;
// a Server answers them directly from a local tool registry without
// any transport of its own.
package toolsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// protocolVersion is the MCP protocol revision reported on initialize.
const protocolVersion = "2024-11-05"

// Handler executes one tool call. It uses the official MCP SDK request
// and result types; see Args for extracting the input map.
type Handler = mcp.ToolHandler

// registeredTool pairs a tool definition with its handler.
type registeredTool struct {
	tool    *mcp.Tool
	handler Handler
}

// Server is an in-process tool server: a named registry of tools the
// agent can call through the control channel.
type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// New creates an empty tool server.
func New(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 8),
	}
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// Version returns the server version.
func (s *Server) Version() string { return s.version }

// Register adds a tool. Registering the same name twice replaces the
// earlier entry.
func (s *Server) Register(tool *mcp.Tool, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// listTools renders the registry in the shape the control protocol
// expects from tools/list.
func (s *Server) listTools() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, 0, len(s.tools))

	for _, t := range s.tools {
		entry := map[string]any{
			"name":        t.tool.Name,
			"description": t.tool.Description,
		}

		if schema := toMap(t.tool.InputSchema); schema != nil {
			entry["inputSchema"] = schema
		}

		if annot := toMap(t.tool.Annotations); annot != nil {
			entry["annotations"] = annot
		}

		out = append(out, entry)
	}

	return out
}

// callTool executes one tool. Execution failures are encoded into the
// result payload, not returned as errors: the agent needs to see them.
func (s *Server) callTool(ctx context.Context, name string, input map[string]any) map[string]any {
	s.mu.RLock()
	t, ok := s.tools[name]
	s.mu.RUnlock()

	if !ok {
		return errorPayload("tool not found: " + name)
	}

	args, err := json.Marshal(input)
	if err != nil {
		return errorPayload("marshal tool input: " + err.Error())
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		return errorPayload("tool execution failed: " + err.Error())
	}

	return resultPayload(result)
}

// errorPayload builds a tool result payload carrying an error message.
func errorPayload(msg string) map[string]any {
	return map[string]any{
		"content":  []map[string]any{{"type": "text", "text": msg}},
		"is_error": true,
	}
}

// resultPayload converts a CallToolResult into the control protocol's
// map shape.
func resultPayload(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{"content": []map[string]any{}}
	}

	content := make([]map[string]any, 0, len(result.Content))

	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{"type": "text", "text": v.Text})
		case *mcp.ImageContent:
			content = append(content, map[string]any{
				"type": "image", "data": v.Data, "mimeType": v.MIMEType,
			})
		case *mcp.AudioContent:
			content = append(content, map[string]any{
				"type": "audio", "data": v.Data, "mimeType": v.MIMEType,
			})
		case *mcp.ResourceLink:
			content = append(content, map[string]any{
				"type": "resource_link", "uri": v.URI, "name": v.Name,
			})
		}
	}

	out := map[string]any{"content": content}

	if result.IsError {
		out["is_error"] = true
	}

	return out
}

// toMap renders a struct as a generic JSON object, or nil.
func toMap(v any) map[string]any {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}

	return m
}

// Tool builds an MCP tool definition.
func Tool(name, description string, schema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}
}

// Args extracts a tool call's input as a map.
func Args(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("unmarshal tool arguments: %w", err)
	}

	return args, nil
}

// Text builds a successful text result.
func Text(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Error builds a failed result carrying a message.
func Error(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ObjectSchema builds a JSON schema for an object whose properties all
// use primitive types, given as Go type names ("string", "float64",
// "bool", "[]string", ...). All properties are required.
func ObjectSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = typeSchema(goType)
		required = append(required, name)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func typeSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int32", "int64", "uint", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: typeSchema(goType[2:]),
			}
		}

		return &jsonschema.Schema{Type: "string"}
	}
}
