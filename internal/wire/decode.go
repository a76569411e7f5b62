package wire

import (
	"fmt"

	"github.com/jpmartel/agentwire/internal/errs"
)

// Decode converts one raw JSON object into a typed Message.
//
// Decode is pure: no side effects, no logging. On failure it returns a
// *errs.ShapeError whose Raw field is the input object. An unrecognized
// top-level type additionally wraps errs.ErrUnknownMessageKind so
// callers can choose to skip instead of abort.
func Decode(raw map[string]any) (Message, error) {
	kind, ok := raw["type"].(string)
	if !ok {
		return nil, shapeErr(raw, nil, "missing or invalid 'type' field")
	}

	var (
		msg Message
		err error
	)

	switch kind {
	case KindUser:
		msg, err = decodeUser(raw)
	case KindAssistant:
		msg, err = decodeAssistant(raw)
	case KindSystem:
		msg, err = decodeSystem(raw)
	case KindResult:
		msg, err = decodeResult(raw)
	case KindStreamEvent:
		msg, err = decodeStreamEvent(raw)
	default:
		return nil, shapeErr(raw, errs.ErrUnknownMessageKind,
			"unknown message type %q", kind)
	}

	if err != nil {
		return nil, &errs.ShapeError{Reason: err.Error(), Raw: raw, Err: err}
	}

	return msg, nil
}

// shapeErr builds a ShapeError with a formatted reason.
func shapeErr(raw map[string]any, wrapped error, format string, args ...any) error {
	return &errs.ShapeError{
		Reason: fmt.Sprintf(format, args...),
		Raw:    raw,
		Err:    wrapped,
	}
}

func decodeUser(raw map[string]any) (*UserMessage, error) {
	inner, ok := raw["message"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("user message: missing or invalid 'message' field")
	}

	content, ok := inner["content"]
	if !ok {
		return nil, fmt.Errorf("user message: missing 'content' field")
	}

	msg := &UserMessage{}

	// Content is either a bare string or an array of blocks.
	switch c := content.(type) {
	case string:
		msg.Content = []ContentBlock{&TextBlock{Text: c}}
	case []any:
		blocks, err := decodeBlocks(c)
		if err != nil {
			return nil, fmt.Errorf("user message: %w", err)
		}

		msg.Content = blocks
	default:
		return nil, fmt.Errorf("user message: 'content' is neither string nor array")
	}

	msg.UUID = optString(raw, "uuid")
	msg.ParentToolUseID = optString(raw, "parent_tool_use_id")

	return msg, nil
}

func decodeAssistant(raw map[string]any) (*AssistantMessage, error) {
	inner, ok := raw["message"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("assistant message: missing or invalid 'message' field")
	}

	content, ok := inner["content"].([]any)
	if !ok {
		return nil, fmt.Errorf("assistant message: missing or invalid 'content' array")
	}

	model, ok := inner["model"].(string)
	if !ok {
		return nil, fmt.Errorf("assistant message: missing or invalid 'model' field")
	}

	blocks, err := decodeBlocks(content)
	if err != nil {
		return nil, fmt.Errorf("assistant message: %w", err)
	}

	msg := &AssistantMessage{
		Content:         blocks,
		Model:           model,
		ParentToolUseID: optString(raw, "parent_tool_use_id"),
	}

	// Error rides at the top level, outside the nested message.
	if errStr, ok := raw["error"].(string); ok {
		classified := classifyAssistantError(errStr)
		msg.Error = &classified
	}

	return msg, nil
}

func decodeSystem(raw map[string]any) (*SystemMessage, error) {
	subtype, ok := raw["subtype"].(string)
	if !ok {
		return nil, fmt.Errorf("system message: missing or invalid 'subtype' field")
	}

	// Everything else is retained raw for forward compatibility.
	fields := make(map[string]any, len(raw))

	for k, v := range raw {
		if k != "type" && k != "subtype" {
			fields[k] = v
		}
	}

	return &SystemMessage{Subtype: subtype, Fields: fields}, nil
}

func decodeResult(raw map[string]any) (*ResultMessage, error) {
	subtype, ok := raw["subtype"].(string)
	if !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'subtype' field")
	}

	durationMs, ok := intField(raw, "duration_ms")
	if !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'duration_ms' field")
	}

	durationAPIMs, ok := intField(raw, "duration_api_ms")
	if !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'duration_api_ms' field")
	}

	isError, ok := raw["is_error"].(bool)
	if !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'is_error' field")
	}

	numTurns, ok := intField(raw, "num_turns")
	if !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'num_turns' field")
	}

	sessionID, ok := raw["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'session_id' field")
	}

	msg := &ResultMessage{
		Subtype:       subtype,
		DurationMs:    durationMs,
		DurationAPIMs: durationAPIMs,
		IsError:       isError,
		NumTurns:      numTurns,
		SessionID:     sessionID,
	}

	// Optional fields, each independently absent-tolerant.
	if cost, ok := floatField(raw, "total_cost_usd"); ok {
		msg.TotalCostUSD = &cost
	}

	if usageMap, ok := raw["usage"].(map[string]any); ok {
		usage := &Usage{}

		if in, ok := intField(usageMap, "input_tokens"); ok {
			usage.InputTokens = in
		}

		if out, ok := intField(usageMap, "output_tokens"); ok {
			usage.OutputTokens = out
		}

		msg.Usage = usage
	}

	msg.Result = optString(raw, "result")

	if structured, ok := raw["structured_output"]; ok {
		msg.StructuredOutput = structured
	}

	return msg, nil
}

func decodeStreamEvent(raw map[string]any) (*StreamEvent, error) {
	uuid, ok := raw["uuid"].(string)
	if !ok {
		return nil, fmt.Errorf("stream_event: missing or invalid 'uuid' field")
	}

	sessionID, ok := raw["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("stream_event: missing or invalid 'session_id' field")
	}

	event, ok := raw["event"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("stream_event: missing or invalid 'event' field")
	}

	return &StreamEvent{
		UUID:            uuid,
		SessionID:       sessionID,
		Event:           event,
		ParentToolUseID: optString(raw, "parent_tool_use_id"),
	}, nil
}

// decodeBlocks converts a wire content array into typed blocks.
// Blocks with an unrecognized type are skipped, not failed: new block
// kinds may appear on the wire before this module learns about them.
func decodeBlocks(items []any) ([]ContentBlock, error) {
	blocks := make([]ContentBlock, 0, len(items))

	for i, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("content block %d: not an object", i)
		}

		kind, ok := data["type"].(string)
		if !ok {
			return nil, fmt.Errorf("content block %d: missing or invalid 'type' field", i)
		}

		switch kind {
		case BlockText:
			text, _ := data["text"].(string)
			blocks = append(blocks, &TextBlock{Text: text})

		case BlockThinking:
			thinking, _ := data["thinking"].(string)
			signature, _ := data["signature"].(string)
			blocks = append(blocks, &ThinkingBlock{Thinking: thinking, Signature: signature})

		case BlockToolUse:
			id, _ := data["id"].(string)
			name, _ := data["name"].(string)
			input, _ := data["input"].(map[string]any)
			blocks = append(blocks, &ToolUseBlock{ID: id, Name: name, Input: input})

		case BlockToolResult:
			block := &ToolResultBlock{}
			block.ToolUseID, _ = data["tool_use_id"].(string)

			if content, ok := data["content"]; ok {
				block.Content = content
			}

			if isErr, ok := data["is_error"].(bool); ok {
				block.IsError = &isErr
			}

			blocks = append(blocks, block)

		default:
			// Unknown block kind: skip.
			continue
		}
	}

	return blocks, nil
}

// optString reads an optional string field as a pointer.
func optString(raw map[string]any, key string) *string {
	if s, ok := raw[key].(string); ok {
		return &s
	}

	return nil
}

// intField reads a numeric field. JSON numbers decode as float64; a
// plain int is also accepted for values built in-process.
func intField(raw map[string]any, key string) (int, bool) {
	switch v := raw[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// floatField reads a numeric field as float64.
func floatField(raw map[string]any, key string) (float64, bool) {
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
