package toolsrv

import (
	"context"
	"fmt"
)

// JSONRPC error codes used on the tunneled channel.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

// Route answers one tunneled JSONRPC message addressed to this server.
// The returned map is the mcp_response payload for the control channel.
// Protocol-level failures come back as JSONRPC error objects, never as
// Go errors: the tunnel must always produce a response.
func (s *Server) Route(ctx context.Context, message map[string]any) map[string]any {
	method, _ := message["method"].(string)
	params, _ := message["params"].(map[string]any)
	msgID := normalizeID(message["id"])

	switch method {
	case "initialize":
		return rpcResult(msgID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": s.version,
			},
		})

	case "notifications/initialized":
		return rpcResult(msgID, map[string]any{})

	case "tools/list":
		return rpcResult(msgID, map[string]any{"tools": s.listTools()})

	case "tools/call":
		if params == nil {
			return rpcError(msgID, codeInvalidParams, "missing params for tools/call")
		}

		name, _ := params["name"].(string)
		if name == "" {
			return rpcError(msgID, codeInvalidParams, "missing tool name in params")
		}

		arguments, _ := params["arguments"].(map[string]any)

		return rpcResult(msgID, s.callTool(ctx, name, arguments))

	default:
		return rpcError(msgID, codeMethodNotFound, fmt.Sprintf("method not found: %s", method))
	}
}

// RouteErrorResponse builds an mcp_response for a message that could
// not be routed to any server.
func RouteErrorResponse(message map[string]any, reason string) map[string]any {
	var msgID any
	if message != nil {
		msgID = normalizeID(message["id"])
	}

	return rpcError(msgID, codeInvalidRequest, reason)
}

// normalizeID keeps JSONRPC ids stable across the JSON round trip:
// numeric ids arrive as float64 and go back as integers.
func normalizeID(id any) any {
	if f, ok := id.(float64); ok {
		return int(f)
	}

	return id
}

func rpcResult(msgID any, result map[string]any) map[string]any {
	return map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      msgID,
			"result":  result,
		},
	}
}

func rpcError(msgID any, code int, message string) map[string]any {
	return map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      msgID,
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
	}
}
