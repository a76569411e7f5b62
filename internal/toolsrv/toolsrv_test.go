package toolsrv

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalcServer(t *testing.T) *Server {
	t.Helper()

	server := New("calc", "1.0.0")
	server.Register(
		Tool("add", "adds two numbers", ObjectSchema(map[string]string{
			"a": "float64",
			"b": "float64",
		})),
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := Args(req)
			if err != nil {
				return nil, err
			}

			a, aok := args["a"].(float64)
			b, bok := args["b"].(float64)

			if !aok || !bok {
				return Error("a and b must be numbers"), nil
			}

			if a+b > 1e9 {
				return nil, stderrors.New("overflow")
			}

			return Text("sum computed"), nil
		},
	)

	return server
}

func TestRoute_Initialize(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(1),
		"method":  "initialize",
	})

	resp := out["mcp_response"].(map[string]any)
	assert.Equal(t, "2.0", resp["jsonrpc"])
	assert.Equal(t, 1, resp["id"])

	result := resp["result"].(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])

	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "calc", info["name"])
	assert.Equal(t, "1.0.0", info["version"])
}

func TestRoute_ToolsList(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(2),
		"method":  "tools/list",
	})

	result := out["mcp_response"].(map[string]any)["result"].(map[string]any)
	tools := result["tools"].([]map[string]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "add", tools[0]["name"])
	assert.Equal(t, "adds two numbers", tools[0]["description"])

	schema := tools[0]["inputSchema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
}

func TestRoute_ToolsCall_Success(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(3),
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "add",
			"arguments": map[string]any{"a": float64(2), "b": float64(2)},
		},
	})

	result := out["mcp_response"].(map[string]any)["result"].(map[string]any)
	content := result["content"].([]map[string]any)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	assert.Equal(t, "sum computed", content[0]["text"])
	assert.NotContains(t, result, "is_error")
}

func TestRoute_ToolsCall_HandlerError(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(4),
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "add",
			"arguments": map[string]any{"a": float64(1e9), "b": float64(1e9)},
		},
	})

	// Handler errors become error payloads, not JSONRPC errors: the
	// agent reads them as a failed tool result.
	result := out["mcp_response"].(map[string]any)["result"].(map[string]any)
	assert.Equal(t, true, result["is_error"])

	content := result["content"].([]map[string]any)
	require.Len(t, content, 1)
	assert.Contains(t, content[0]["text"], "overflow")
}

func TestRoute_ToolsCall_UnknownTool(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(5),
		"method":  "tools/call",
		"params":  map[string]any{"name": "subtract"},
	})

	result := out["mcp_response"].(map[string]any)["result"].(map[string]any)
	assert.Equal(t, true, result["is_error"])
}

func TestRoute_ToolsCall_MissingParams(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(6),
		"method":  "tools/call",
	})

	rpcErr := out["mcp_response"].(map[string]any)["error"].(map[string]any)
	assert.Equal(t, codeInvalidParams, rpcErr["code"])
}

func TestRoute_UnknownMethod(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(7),
		"method":  "resources/list",
	})

	rpcErr := out["mcp_response"].(map[string]any)["error"].(map[string]any)
	assert.Equal(t, codeMethodNotFound, rpcErr["code"])
	assert.Contains(t, rpcErr["message"], "resources/list")
}

func TestRoute_NotificationInitialized(t *testing.T) {
	server := newCalcServer(t)

	out := server.Route(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"method":  "notifications/initialized",
	})

	resp := out["mcp_response"].(map[string]any)
	assert.Contains(t, resp, "result")
}

func TestRouteErrorResponse(t *testing.T) {
	out := RouteErrorResponse(map[string]any{"id": float64(9)}, "no such server")

	rpcErr := out["mcp_response"].(map[string]any)["error"].(map[string]any)
	assert.Equal(t, codeInvalidRequest, rpcErr["code"])
	assert.Equal(t, "no such server", rpcErr["message"])
	assert.Equal(t, 9, out["mcp_response"].(map[string]any)["id"])

	// Nil message still produces a response.
	out = RouteErrorResponse(nil, "nothing to route")
	assert.Contains(t, out, "mcp_response")
}

func TestRegister_ReplacesExisting(t *testing.T) {
	server := New("s", "0.1.0")

	handler := func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return Text("v2"), nil
	}

	server.Register(Tool("t", "first", nil), handler)
	server.Register(Tool("t", "second", nil), handler)

	tools := server.listTools()
	require.Len(t, tools, 1)
	assert.Equal(t, "second", tools[0]["description"])
}

func TestObjectSchema(t *testing.T) {
	schema := ObjectSchema(map[string]string{
		"name":  "string",
		"count": "int",
		"ratio": "float64",
		"on":    "bool",
		"tags":  "[]string",
	})

	assert.Equal(t, "object", schema.Type)
	require.Len(t, schema.Required, 5)
	assert.Equal(t, "string", schema.Properties["name"].Type)
	assert.Equal(t, "integer", schema.Properties["count"].Type)
	assert.Equal(t, "number", schema.Properties["ratio"].Type)
	assert.Equal(t, "boolean", schema.Properties["on"].Type)
	assert.Equal(t, "array", schema.Properties["tags"].Type)
	assert.Equal(t, "string", schema.Properties["tags"].Items.Type)
}
