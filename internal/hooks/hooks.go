// Package hooks defines the lifecycle hook surface: event names, typed
// hook inputs delivered by the remote side, and the outputs a host
// callback returns, plus the wire translation for both directions.
package hooks

import "context"

// Event names a lifecycle point the remote side reports before or
// after acting.
type Event string

const (
	EventPreToolUse       Event = "PreToolUse"
	EventPostToolUse      Event = "PostToolUse"
	EventUserPromptSubmit Event = "UserPromptSubmit"
	EventStop             Event = "Stop"
	EventSubagentStop     Event = "SubagentStop"
	EventPreCompact       Event = "PreCompact"
	EventNotification     Event = "Notification"
)

// Input is the typed payload handed to a hook callback. Switch on the
// concrete type to access event-specific fields.
type Input interface {
	Event() Event
	Common() *CommonInput
}

var (
	_ Input = (*PreToolUseInput)(nil)
	_ Input = (*PostToolUseInput)(nil)
	_ Input = (*UserPromptSubmitInput)(nil)
	_ Input = (*StopInput)(nil)
	_ Input = (*SubagentStopInput)(nil)
	_ Input = (*PreCompactInput)(nil)
	_ Input = (*NotificationInput)(nil)
	_ Input = (*UnknownEventInput)(nil)
)

// CommonInput carries the fields present on every hook invocation.
//
//nolint:tagliatelle // wire protocol uses snake_case
type CommonInput struct {
	SessionID      string  `json:"session_id"`
	TranscriptPath string  `json:"transcript_path"`
	Cwd            string  `json:"cwd"`
	PermissionMode *string `json:"permission_mode,omitempty"`
}

// Common implements Input.
func (c *CommonInput) Common() *CommonInput { return c }

// PreToolUseInput fires before a tool executes.
//
//nolint:tagliatelle // wire protocol uses snake_case
type PreToolUseInput struct {
	CommonInput
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	ToolUseID string         `json:"tool_use_id"`
}

// Event implements Input.
func (i *PreToolUseInput) Event() Event { return EventPreToolUse }

// PostToolUseInput fires after a tool executed.
//
//nolint:tagliatelle // wire protocol uses snake_case
type PostToolUseInput struct {
	CommonInput
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolUseID    string         `json:"tool_use_id"`
	ToolResponse any            `json:"tool_response"`
}

// Event implements Input.
func (i *PostToolUseInput) Event() Event { return EventPostToolUse }

// UserPromptSubmitInput fires when a user prompt enters the turn.
type UserPromptSubmitInput struct {
	CommonInput
	Prompt string `json:"prompt"`
}

// Event implements Input.
func (i *UserPromptSubmitInput) Event() Event { return EventUserPromptSubmit }

// StopInput fires when the agent is about to stop responding.
//
//nolint:tagliatelle // wire protocol uses snake_case
type StopInput struct {
	CommonInput
	StopHookActive bool `json:"stop_hook_active"`
}

// Event implements Input.
func (i *StopInput) Event() Event { return EventStop }

// SubagentStopInput fires when a subagent finishes.
//
//nolint:tagliatelle // wire protocol uses snake_case
type SubagentStopInput struct {
	CommonInput
	StopHookActive bool   `json:"stop_hook_active"`
	AgentID        string `json:"agent_id"`
	AgentType      string `json:"agent_type"`
}

// Event implements Input.
func (i *SubagentStopInput) Event() Event { return EventSubagentStop }

// PreCompactInput fires before transcript compaction.
//
//nolint:tagliatelle // wire protocol uses snake_case
type PreCompactInput struct {
	CommonInput
	Trigger            string  `json:"trigger"`
	CustomInstructions *string `json:"custom_instructions,omitempty"`
}

// Event implements Input.
func (i *PreCompactInput) Event() Event { return EventPreCompact }

// NotificationInput fires for user-facing notices.
//
//nolint:tagliatelle // wire protocol uses snake_case
type NotificationInput struct {
	CommonInput
	Message          string  `json:"message"`
	Title            *string `json:"title,omitempty"`
	NotificationType string  `json:"notification_type"`
}

// Event implements Input.
func (i *NotificationInput) Event() Event { return EventNotification }

// UnknownEventInput preserves hook payloads for events this module does
// not model yet. Raw holds the untouched input object.
type UnknownEventInput struct {
	CommonInput
	EventName string
	Raw       map[string]any
}

// Event implements Input.
func (i *UnknownEventInput) Event() Event { return Event(i.EventName) }

// Callback is a host-supplied hook function. The returned Output (nil
// is fine and means "continue") is translated to wire naming by
// EncodeOutput before being written back.
type Callback func(ctx context.Context, input Input, toolUseID *string) (Output, error)

// Matcher binds callbacks to an event, optionally filtered by tool
// name. Matcher is a literal tool name or a pipe-separated list such
// as "Write|Edit", never a regex; empty matches everything.
type Matcher struct {
	Matcher string
	Hooks   []Callback
	Timeout *float64 // seconds
}
