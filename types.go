package agentwire

import (
	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/hooks"
	"github.com/jpmartel/agentwire/internal/perms"
	"github.com/jpmartel/agentwire/internal/wire"
)

// Options configures a session; see the field docs for details.
type Options = config.Options

// Transport is the duplex line-oriented byte stream a session runs
// over. Options.Transport injects a custom one; otherwise the module
// spawns Options.Command as a child process.
type Transport = config.Transport

// Message is the typed union of agent output. Switch on the concrete
// type: *UserMessage, *AssistantMessage, *SystemMessage,
// *ResultMessage, *StreamEvent.
type Message = wire.Message

// Agent output message variants.
type (
	UserMessage      = wire.UserMessage
	AssistantMessage = wire.AssistantMessage
	SystemMessage    = wire.SystemMessage
	ResultMessage    = wire.ResultMessage
	StreamEvent      = wire.StreamEvent
	Usage            = wire.Usage
)

// ContentBlock is the typed union of message content. Concrete types:
// *TextBlock, *ThinkingBlock, *ToolUseBlock, *ToolResultBlock.
type ContentBlock = wire.ContentBlock

// Content block variants.
type (
	TextBlock       = wire.TextBlock
	ThinkingBlock   = wire.ThinkingBlock
	ToolUseBlock    = wire.ToolUseBlock
	ToolResultBlock = wire.ToolResultBlock
)

// AssistantError classifies why an assistant turn failed.
type AssistantError = wire.AssistantError

// Permission surface: the callback consulted before each tool
// invocation and its results.
type (
	PermissionCallback = perms.Callback
	PermissionRequest  = perms.Request
	PermissionResult   = perms.Result
	PermissionAllow    = perms.Allow
	PermissionDeny     = perms.Deny
	PermissionUpdate   = perms.Update
	PermissionRule     = perms.Rule
)

// Permission modes.
const (
	PermissionModeDefault           = string(perms.ModeDefault)
	PermissionModeAcceptEdits       = string(perms.ModeAcceptEdits)
	PermissionModePlan              = string(perms.ModePlan)
	PermissionModeBypassPermissions = string(perms.ModeBypassPermissions)
)

// Hook surface: lifecycle events, typed inputs, callback outputs.
type (
	HookEvent    = hooks.Event
	HookInput    = hooks.Input
	HookCallback = hooks.Callback
	HookMatcher  = hooks.Matcher
	HookOutput   = hooks.Output

	HookSyncOutput  = hooks.SyncOutput
	HookAsyncOutput = hooks.AsyncOutput

	PreToolUseInput       = hooks.PreToolUseInput
	PostToolUseInput      = hooks.PostToolUseInput
	UserPromptSubmitInput = hooks.UserPromptSubmitInput
	StopInput             = hooks.StopInput
	SubagentStopInput     = hooks.SubagentStopInput
	PreCompactInput       = hooks.PreCompactInput
	NotificationInput     = hooks.NotificationInput

	PreToolUseOutput       = hooks.PreToolUseOutput
	PostToolUseOutput      = hooks.PostToolUseOutput
	UserPromptSubmitOutput = hooks.UserPromptSubmitOutput
)

// Hook events.
const (
	HookPreToolUse       = hooks.EventPreToolUse
	HookPostToolUse      = hooks.EventPostToolUse
	HookUserPromptSubmit = hooks.EventUserPromptSubmit
	HookStop             = hooks.EventStop
	HookSubagentStop     = hooks.EventSubagentStop
	HookPreCompact       = hooks.EventPreCompact
	HookNotification     = hooks.EventNotification
)
