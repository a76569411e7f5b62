package control

import "context"

// Request is a control_request envelope, either direction.
//
// Wire format:
//
//	{"type": "control_request",
//	 "request_id": "01J...",
//	 "request": {"subtype": "interrupt", ...payload}}
//
//nolint:tagliatelle // wire protocol uses snake_case
type Request struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Body      map[string]any `json:"request"`
}

// Subtype reads the nested subtype discriminator.
func (r *Request) Subtype() string {
	s, _ := r.Body["subtype"].(string)

	return s
}

// Response is a control_response envelope. The nested object carries
// the correlation id and either a success payload or an error string.
//
// Success:
//
//	{"type": "control_response",
//	 "response": {"subtype": "success", "request_id": "01J...", "response": {...}}}
//
// Error:
//
//	{"type": "control_response",
//	 "response": {"subtype": "error", "request_id": "01J...", "error": "..."}}
type Response struct {
	Type string         `json:"type"`
	Body map[string]any `json:"response"`
}

// RequestID reads the correlation id from the nested body.
func (r *Response) RequestID() string {
	id, _ := r.Body["request_id"].(string)

	return id
}

// IsError reports whether this is an error response.
func (r *Response) IsError() bool {
	s, _ := r.Body["subtype"].(string)

	return s == "error"
}

// ErrorMessage reads the error string of an error response.
func (r *Response) ErrorMessage() string {
	msg, _ := r.Body["error"].(string)

	return msg
}

// Result reads the success payload.
func (r *Response) Result() map[string]any {
	p, _ := r.Body["response"].(map[string]any)

	return p
}

// Handler answers one inbound control request. The returned payload is
// wrapped into a success response; a returned error becomes an error
// response. Either way the engine writes exactly one correlated reply.
type Handler func(ctx context.Context, req *Request) (map[string]any, error)
