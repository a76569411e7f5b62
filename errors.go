package agentwire

import "github.com/jpmartel/agentwire/internal/errs"

// Error types surfaced by the module. See the internal/errs package
// for the taxonomy: connection failures are fatal, decode failures are
// per-line, shape failures carry the offending raw object.
type (
	// ConnectionError reports a transport that could not be reached or
	// died underneath the session.
	ConnectionError = errs.ConnError

	// ProcessError reports an agent process that exited abnormally,
	// with its exit code and captured stderr tail.
	ProcessError = errs.ProcessError

	// MessageShapeError reports a recognized message whose required
	// fields were missing or mistyped. Raw holds the offending object.
	MessageShapeError = errs.ShapeError

	// JSONDecodeError reports one malformed transport line. The read
	// loop continues past it.
	JSONDecodeError = errs.JSONDecodeError
)

// Sentinel errors for state checks with errors.Is.
var (
	ErrNotConnected       = errs.ErrNotConnected
	ErrAlreadyConnected   = errs.ErrAlreadyConnected
	ErrSessionClosed      = errs.ErrSessionClosed
	ErrTransportClosed    = errs.ErrTransportClosed
	ErrRequestTimeout     = errs.ErrRequestTimeout
	ErrConnClosed         = errs.ErrConnClosed
	ErrInputClosed        = errs.ErrInputClosed
	ErrUnknownMessageKind = errs.ErrUnknownMessageKind
)
