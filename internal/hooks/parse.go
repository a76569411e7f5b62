package hooks

// ParseInput converts a raw hook_callback input object into its typed
// Input. Events the module does not model come back as
// *UnknownEventInput with the raw object preserved; hook dispatch must
// keep working when the remote side grows new events.
func ParseInput(raw map[string]any) Input {
	common := CommonInput{}
	common.SessionID, _ = raw["session_id"].(string)
	common.TranscriptPath, _ = raw["transcript_path"].(string)
	common.Cwd, _ = raw["cwd"].(string)

	if mode, ok := raw["permission_mode"].(string); ok {
		common.PermissionMode = &mode
	}

	eventName, _ := raw["hook_event_name"].(string)

	switch Event(eventName) {
	case EventPreToolUse:
		in := &PreToolUseInput{CommonInput: common}
		in.ToolName, _ = raw["tool_name"].(string)
		in.ToolInput, _ = raw["tool_input"].(map[string]any)
		in.ToolUseID, _ = raw["tool_use_id"].(string)

		return in

	case EventPostToolUse:
		in := &PostToolUseInput{CommonInput: common}
		in.ToolName, _ = raw["tool_name"].(string)
		in.ToolInput, _ = raw["tool_input"].(map[string]any)
		in.ToolUseID, _ = raw["tool_use_id"].(string)
		in.ToolResponse = raw["tool_response"]

		return in

	case EventUserPromptSubmit:
		in := &UserPromptSubmitInput{CommonInput: common}
		in.Prompt, _ = raw["prompt"].(string)

		return in

	case EventStop:
		in := &StopInput{CommonInput: common}
		in.StopHookActive, _ = raw["stop_hook_active"].(bool)

		return in

	case EventSubagentStop:
		in := &SubagentStopInput{CommonInput: common}
		in.StopHookActive, _ = raw["stop_hook_active"].(bool)
		in.AgentID, _ = raw["agent_id"].(string)
		in.AgentType, _ = raw["agent_type"].(string)

		return in

	case EventPreCompact:
		in := &PreCompactInput{CommonInput: common}
		in.Trigger, _ = raw["trigger"].(string)

		if ci, ok := raw["custom_instructions"].(string); ok && ci != "" {
			in.CustomInstructions = &ci
		}

		return in

	case EventNotification:
		in := &NotificationInput{CommonInput: common}
		in.Message, _ = raw["message"].(string)
		in.NotificationType, _ = raw["notification_type"].(string)

		if title, ok := raw["title"].(string); ok && title != "" {
			in.Title = &title
		}

		return in

	default:
		return &UnknownEventInput{
			CommonInput: common,
			EventName:   eventName,
			Raw:         raw,
		}
	}
}
