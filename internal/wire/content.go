package wire

// Content block kind discriminators.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one block of content inside a user or assistant
// message. Switch on the concrete type or on BlockKind().
type ContentBlock interface {
	BlockKind() string
}

var (
	_ ContentBlock = (*TextBlock)(nil)
	_ ContentBlock = (*ThinkingBlock)(nil)
	_ ContentBlock = (*ToolUseBlock)(nil)
	_ ContentBlock = (*ToolResultBlock)(nil)
)

// TextBlock is plain text content.
type TextBlock struct {
	Text string `json:"text"`
}

// BlockKind implements ContentBlock.
func (b *TextBlock) BlockKind() string { return BlockText }

// ThinkingBlock carries the model's reasoning and its signature.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// BlockKind implements ContentBlock.
func (b *ThinkingBlock) BlockKind() string { return BlockThinking }

// ToolUseBlock is the agent invoking a tool.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// BlockKind implements ContentBlock.
func (b *ToolUseBlock) BlockKind() string { return BlockToolUse }

// ToolResultBlock is the outcome of a tool invocation. Content holds
// whatever the tool produced; the wire format allows a bare string, a
// block array, or arbitrary structured data, so it stays untyped.
//
//nolint:tagliatelle // wire protocol uses snake_case
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   any    `json:"content,omitempty"`
	IsError   *bool  `json:"is_error,omitempty"`
}

// BlockKind implements ContentBlock.
func (b *ToolResultBlock) BlockKind() string { return BlockToolResult }
