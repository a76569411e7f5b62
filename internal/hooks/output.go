package hooks

// Output is what a hook callback returns. The two concrete variants
// are SyncOutput and AsyncOutput; nil means "continue, nothing to add".
type Output any

var (
	_ Output = (*SyncOutput)(nil)
	_ Output = (*AsyncOutput)(nil)
)

// Decision values for SyncOutput.Decision.
const (
	DecisionBlock = "block"
)

// Permission decisions inside a PreToolUseOutput.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
	PermissionAsk   = "ask"
)

// SyncOutput is a synchronous hook verdict.
type SyncOutput struct {
	Continue       *bool
	SuppressOutput *bool
	StopReason     *string
	Decision       *string
	SystemMessage  *string
	Reason         *string
	Specific       SpecificOutput
}

// AsyncOutput tells the remote side the hook's work continues in the
// background; the timeout bounds how long it will wait, in ms.
type AsyncOutput struct {
	Timeout *int
}

// SpecificOutput carries an event-specific payload nested inside a
// sync output.
type SpecificOutput interface {
	EventName() string
	encode() map[string]any
}

var (
	_ SpecificOutput = (*PreToolUseOutput)(nil)
	_ SpecificOutput = (*PostToolUseOutput)(nil)
	_ SpecificOutput = (*UserPromptSubmitOutput)(nil)
)

// PreToolUseOutput lets a PreToolUse hook decide the pending tool
// invocation: allow (optionally rewriting its input), deny, or ask.
type PreToolUseOutput struct {
	PermissionDecision *string
	DecisionReason     *string
	UpdatedInput       map[string]any
	AdditionalContext  *string
}

// EventName implements SpecificOutput.
func (o *PreToolUseOutput) EventName() string { return string(EventPreToolUse) }

func (o *PreToolUseOutput) encode() map[string]any {
	out := map[string]any{"hookEventName": o.EventName()}

	if o.PermissionDecision != nil {
		out["permissionDecision"] = *o.PermissionDecision
	}

	if o.DecisionReason != nil {
		out["permissionDecisionReason"] = *o.DecisionReason
	}

	if o.UpdatedInput != nil {
		out["updatedInput"] = o.UpdatedInput
	}

	if o.AdditionalContext != nil {
		out["additionalContext"] = *o.AdditionalContext
	}

	return out
}

// PostToolUseOutput lets a PostToolUse hook inject context.
type PostToolUseOutput struct {
	AdditionalContext *string
}

// EventName implements SpecificOutput.
func (o *PostToolUseOutput) EventName() string { return string(EventPostToolUse) }

func (o *PostToolUseOutput) encode() map[string]any {
	out := map[string]any{"hookEventName": o.EventName()}

	if o.AdditionalContext != nil {
		out["additionalContext"] = *o.AdditionalContext
	}

	return out
}

// UserPromptSubmitOutput lets a UserPromptSubmit hook add context to
// the submitted prompt.
type UserPromptSubmitOutput struct {
	AdditionalContext *string
}

// EventName implements SpecificOutput.
func (o *UserPromptSubmitOutput) EventName() string { return string(EventUserPromptSubmit) }

func (o *UserPromptSubmitOutput) encode() map[string]any {
	out := map[string]any{"hookEventName": o.EventName()}

	if o.AdditionalContext != nil {
		out["additionalContext"] = *o.AdditionalContext
	}

	return out
}

// EncodeOutput translates a hook output into the wire's camelCase
// response payload. A nil output encodes as a plain continue.
func EncodeOutput(output Output) map[string]any {
	switch o := output.(type) {
	case *SyncOutput:
		out := make(map[string]any, 8)

		if o.Continue != nil {
			out["continue"] = *o.Continue
		} else {
			out["continue"] = true
		}

		if o.SuppressOutput != nil {
			out["suppressOutput"] = *o.SuppressOutput
		}

		if o.StopReason != nil {
			out["stopReason"] = *o.StopReason
		}

		if o.Decision != nil {
			out["decision"] = *o.Decision
		}

		if o.SystemMessage != nil {
			out["systemMessage"] = *o.SystemMessage
		}

		if o.Reason != nil {
			out["reason"] = *o.Reason
		}

		if o.Specific != nil {
			out["hookSpecificOutput"] = o.Specific.encode()
		}

		return out

	case *AsyncOutput:
		out := map[string]any{"async": true}

		if o.Timeout != nil {
			out["asyncTimeout"] = *o.Timeout
		}

		return out

	default:
		return map[string]any{"continue": true}
	}
}
