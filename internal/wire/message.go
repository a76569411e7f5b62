package wire

// Message kind discriminators, matching the wire "type" field.
const (
	KindUser        = "user"
	KindAssistant   = "assistant"
	KindSystem      = "system"
	KindResult      = "result"
	KindStreamEvent = "stream_event"
)

// Message is one agent-output message. The five concrete variants form
// a closed union; switch on the concrete type or on Kind().
type Message interface {
	Kind() string
}

var (
	_ Message = (*UserMessage)(nil)
	_ Message = (*AssistantMessage)(nil)
	_ Message = (*SystemMessage)(nil)
	_ Message = (*ResultMessage)(nil)
	_ Message = (*StreamEvent)(nil)
)

// UserMessage is a user turn echoed back on the output stream, for
// example after a tool result is injected into the conversation.
//
//nolint:tagliatelle // wire protocol uses snake_case
type UserMessage struct {
	Content         []ContentBlock `json:"content"`
	UUID            *string        `json:"uuid,omitempty"`
	ParentToolUseID *string        `json:"parent_tool_use_id,omitempty"`
}

// Kind implements Message.
func (m *UserMessage) Kind() string { return KindUser }

// AssistantError classifies assistant-level failures into a small
// closed set. Anything the decoder does not recognize maps to
// AssistantErrorUnknown rather than failing the decode.
type AssistantError string

const (
	AssistantErrorAuthFailed     AssistantError = "authentication_failed"
	AssistantErrorBilling        AssistantError = "billing_error"
	AssistantErrorRateLimit      AssistantError = "rate_limit"
	AssistantErrorInvalidRequest AssistantError = "invalid_request"
	AssistantErrorServer         AssistantError = "server_error"
	AssistantErrorUnknown        AssistantError = "unknown"
)

// classifyAssistantError maps a wire error string into the closed enum.
func classifyAssistantError(s string) AssistantError {
	switch e := AssistantError(s); e {
	case AssistantErrorAuthFailed, AssistantErrorBilling, AssistantErrorRateLimit,
		AssistantErrorInvalidRequest, AssistantErrorServer, AssistantErrorUnknown:
		return e
	default:
		return AssistantErrorUnknown
	}
}

// AssistantMessage is one agent response message.
//
//nolint:tagliatelle // wire protocol uses snake_case
type AssistantMessage struct {
	Content         []ContentBlock  `json:"content"`
	Model           string          `json:"model"`
	ParentToolUseID *string         `json:"parent_tool_use_id,omitempty"`
	Error           *AssistantError `json:"error,omitempty"`
}

// Kind implements Message.
func (m *AssistantMessage) Kind() string { return KindAssistant }

// SystemMessage is an out-of-band notice (init info, status changes).
// Fields retains the full raw object minus type/subtype so hosts can
// read forward-compatible extras the decoder does not model.
type SystemMessage struct {
	Subtype string         `json:"subtype"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Kind implements Message.
func (m *SystemMessage) Kind() string { return KindSystem }

// Usage is token accounting attached to a result.
//
//nolint:tagliatelle // wire protocol uses snake_case
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ResultMessage terminates one turn.
//
//nolint:tagliatelle // wire protocol uses snake_case
type ResultMessage struct {
	Subtype          string   `json:"subtype"`
	DurationMs       int      `json:"duration_ms"`
	DurationAPIMs    int      `json:"duration_api_ms"`
	IsError          bool     `json:"is_error"`
	NumTurns         int      `json:"num_turns"`
	SessionID        string   `json:"session_id"`
	TotalCostUSD     *float64 `json:"total_cost_usd,omitempty"`
	Usage            *Usage   `json:"usage,omitempty"`
	Result           *string  `json:"result,omitempty"`
	StructuredOutput any      `json:"structured_output,omitempty"`
}

// Kind implements Message.
func (m *ResultMessage) Kind() string { return KindResult }

// StreamEvent is a raw streaming event passed through when partial
// message streaming is enabled. Event is the untouched API event.
//
//nolint:tagliatelle // wire protocol uses snake_case
type StreamEvent struct {
	UUID            string         `json:"uuid"`
	SessionID       string         `json:"session_id"`
	Event           map[string]any `json:"event"`
	ParentToolUseID *string        `json:"parent_tool_use_id,omitempty"`
}

// Kind implements Message.
func (m *StreamEvent) Kind() string { return KindStreamEvent }
