package errs

import (
	"errors"
	"fmt"
)

// SDKError is implemented by every typed error this module produces.
// It lets callers distinguish agentwire failures from unrelated errors
// with a single type assertion.
type SDKError interface {
	error
	SDKError() bool
}

var (
	_ SDKError = (*ConnError)(nil)
	_ SDKError = (*ProcessError)(nil)
	_ SDKError = (*ShapeError)(nil)
	_ SDKError = (*JSONDecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates an operation requires a live connection.
	ErrNotConnected = errors.New("session not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("session already connected")

	// ErrSessionClosed indicates the session was closed and cannot be reused.
	ErrSessionClosed = errors.New("session closed: sessions are single-use, create a new one")

	// ErrTransportClosed indicates the transport is not ready for traffic.
	ErrTransportClosed = errors.New("transport closed")

	// ErrRequestTimeout indicates an outbound control request timed out.
	ErrRequestTimeout = errors.New("control request timeout")

	// ErrEngineStopped indicates the protocol engine shut down while a
	// request was still waiting for its response.
	ErrEngineStopped = errors.New("protocol engine stopped")

	// ErrConnClosed resolves pending control requests when the connection
	// is torn down before their responses arrive.
	ErrConnClosed = errors.New("connection closed")

	// ErrInputClosed indicates the write side was half-closed via EndInput.
	ErrInputClosed = errors.New("input stream closed")

	// ErrUnknownMessageKind marks shape errors caused by an unrecognized
	// top-level message type. Callers may skip these rather than abort.
	ErrUnknownMessageKind = errors.New("unknown message kind")

	// ErrHandlerCancelled indicates an inbound control request was
	// cancelled by the remote side before the handler finished.
	ErrHandlerCancelled = errors.New("handler cancelled")
)

// ConnError indicates the transport could not be established or died.
// Fatal to the current connection; the core never retries.
type ConnError struct {
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connect transport: %v", e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// SDKError implements SDKError.
func (e *ConnError) SDKError() bool { return true }

// ProcessError indicates the agent process exited abnormally. Stderr
// carries whatever diagnostic output was captured before exit.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("agent process failed (exit %d): %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("agent process failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// SDKError implements SDKError.
func (e *ProcessError) SDKError() bool { return true }

// ShapeError indicates a message carried a recognized type tag but was
// missing or mismatching a required field. Raw holds the offending
// object exactly as it arrived.
type ShapeError struct {
	Reason string
	Raw    map[string]any
	Err    error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed message: %s", e.Reason)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// SDKError implements SDKError.
func (e *ShapeError) SDKError() bool { return true }

// JSONDecodeError indicates a transport line was not valid JSON.
// Fatal to that single line only; the read loop keeps going.
type JSONDecodeError struct {
	Line string
	Err  error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("decode JSON line: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error { return e.Err }

// SDKError implements SDKError.
func (e *JSONDecodeError) SDKError() bool { return true }
