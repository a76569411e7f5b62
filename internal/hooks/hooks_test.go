package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput_PreToolUse(t *testing.T) {
	raw := map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s-1",
		"transcript_path": "/tmp/t.jsonl",
		"cwd":             "/work",
		"permission_mode": "acceptEdits",
		"tool_name":       "Bash",
		"tool_input":      map[string]any{"command": "ls"},
		"tool_use_id":     "tu-1",
	}

	input := ParseInput(raw)

	pre, ok := input.(*PreToolUseInput)
	require.True(t, ok)
	assert.Equal(t, EventPreToolUse, pre.Event())
	assert.Equal(t, "Bash", pre.ToolName)
	assert.Equal(t, "tu-1", pre.ToolUseID)
	assert.Equal(t, map[string]any{"command": "ls"}, pre.ToolInput)

	common := pre.Common()
	assert.Equal(t, "s-1", common.SessionID)
	assert.Equal(t, "/work", common.Cwd)
	require.NotNil(t, common.PermissionMode)
	assert.Equal(t, "acceptEdits", *common.PermissionMode)
}

func TestParseInput_PostToolUse(t *testing.T) {
	raw := map[string]any{
		"hook_event_name": "PostToolUse",
		"session_id":      "s-1",
		"tool_name":       "Read",
		"tool_response":   map[string]any{"content": "data"},
	}

	input := ParseInput(raw)

	post, ok := input.(*PostToolUseInput)
	require.True(t, ok)
	assert.Equal(t, "Read", post.ToolName)
	assert.Equal(t, map[string]any{"content": "data"}, post.ToolResponse)
}

func TestParseInput_UserPromptSubmit(t *testing.T) {
	input := ParseInput(map[string]any{
		"hook_event_name": "UserPromptSubmit",
		"prompt":          "do the thing",
	})

	submit, ok := input.(*UserPromptSubmitInput)
	require.True(t, ok)
	assert.Equal(t, "do the thing", submit.Prompt)
}

func TestParseInput_StopAndSubagentStop(t *testing.T) {
	stop, ok := ParseInput(map[string]any{
		"hook_event_name":  "Stop",
		"stop_hook_active": true,
	}).(*StopInput)
	require.True(t, ok)
	assert.True(t, stop.StopHookActive)

	sub, ok := ParseInput(map[string]any{
		"hook_event_name": "SubagentStop",
		"agent_id":        "a-1",
		"agent_type":      "explorer",
	}).(*SubagentStopInput)
	require.True(t, ok)
	assert.Equal(t, "a-1", sub.AgentID)
	assert.Equal(t, "explorer", sub.AgentType)
}

func TestParseInput_PreCompactAndNotification(t *testing.T) {
	compact, ok := ParseInput(map[string]any{
		"hook_event_name":     "PreCompact",
		"trigger":             "auto",
		"custom_instructions": "keep decisions",
	}).(*PreCompactInput)
	require.True(t, ok)
	assert.Equal(t, "auto", compact.Trigger)
	require.NotNil(t, compact.CustomInstructions)
	assert.Equal(t, "keep decisions", *compact.CustomInstructions)

	notif, ok := ParseInput(map[string]any{
		"hook_event_name":   "Notification",
		"message":           "waiting for input",
		"title":             "Heads up",
		"notification_type": "permission_request",
	}).(*NotificationInput)
	require.True(t, ok)
	assert.Equal(t, "waiting for input", notif.Message)
	require.NotNil(t, notif.Title)
	assert.Equal(t, "Heads up", *notif.Title)
}

func TestParseInput_UnknownEventPreserved(t *testing.T) {
	raw := map[string]any{
		"hook_event_name": "SessionStart",
		"session_id":      "s-9",
		"source":          "startup",
	}

	input := ParseInput(raw)

	unknown, ok := input.(*UnknownEventInput)
	require.True(t, ok)
	assert.Equal(t, Event("SessionStart"), unknown.Event())
	assert.Equal(t, "s-9", unknown.Common().SessionID)
	assert.Equal(t, raw, unknown.Raw)
}

func TestEncodeOutput_Nil(t *testing.T) {
	out := EncodeOutput(nil)
	assert.Equal(t, map[string]any{"continue": true}, out)
}

func TestEncodeOutput_SyncFields(t *testing.T) {
	cont := false
	suppress := true
	stopReason := "policy"
	decision := DecisionBlock
	system := "a rule fired"
	reason := "blocked by rule"

	out := EncodeOutput(&SyncOutput{
		Continue:       &cont,
		SuppressOutput: &suppress,
		StopReason:     &stopReason,
		Decision:       &decision,
		SystemMessage:  &system,
		Reason:         &reason,
	})

	assert.Equal(t, false, out["continue"])
	assert.Equal(t, true, out["suppressOutput"])
	assert.Equal(t, "policy", out["stopReason"])
	assert.Equal(t, "block", out["decision"])
	assert.Equal(t, "a rule fired", out["systemMessage"])
	assert.Equal(t, "blocked by rule", out["reason"])
	assert.NotContains(t, out, "hookSpecificOutput")
}

func TestEncodeOutput_SpecificOutputs(t *testing.T) {
	decision := PermissionAllow
	updated := map[string]any{"path": "/tmp/y"}
	extra := "note for the model"

	out := EncodeOutput(&SyncOutput{
		Specific: &PreToolUseOutput{
			PermissionDecision: &decision,
			UpdatedInput:       updated,
			AdditionalContext:  &extra,
		},
	})

	specific := out["hookSpecificOutput"].(map[string]any)
	assert.Equal(t, "PreToolUse", specific["hookEventName"])
	assert.Equal(t, "allow", specific["permissionDecision"])
	assert.Equal(t, updated, specific["updatedInput"])
	assert.Equal(t, extra, specific["additionalContext"])

	out = EncodeOutput(&SyncOutput{
		Specific: &UserPromptSubmitOutput{AdditionalContext: &extra},
	})

	specific = out["hookSpecificOutput"].(map[string]any)
	assert.Equal(t, "UserPromptSubmit", specific["hookEventName"])
	assert.Equal(t, extra, specific["additionalContext"])
}

func TestEncodeOutput_Async(t *testing.T) {
	timeout := 5000

	out := EncodeOutput(&AsyncOutput{Timeout: &timeout})
	assert.Equal(t, true, out["async"])
	assert.Equal(t, 5000, out["asyncTimeout"])

	out = EncodeOutput(&AsyncOutput{})
	assert.Equal(t, map[string]any{"async": true}, out)
}
