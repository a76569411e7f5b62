// Package config holds the option surface and the transport contract
// shared by the protocol engine and the session facade.
package config

import "context"

// Transport is the duplex line-oriented byte stream the protocol
// engine speaks over. The engine never assumes a particular backing: a
// child process's pipes in production, an in-memory queue in tests.
type Transport interface {
	// Connect establishes the transport. Calling Connect on a transport
	// that was already torn down fails.
	Connect(ctx context.Context) error

	// WriteLine sends one complete JSON object as a single line. A
	// trailing newline is appended when missing. Safe for concurrent
	// use; fails when the transport is not connected.
	WriteLine(ctx context.Context, data []byte) error

	// ReadLines returns the transport's single-consumer read sequence:
	// one decoded JSON object per line, lazily, until the underlying
	// stream ends. Per-line JSON decode failures are reported on the
	// error channel without ending the sequence; fatal transport errors
	// end it. Both channels close when reading completes.
	ReadLines(ctx context.Context) (<-chan map[string]any, <-chan error)

	// EndInput half-closes the transport: no further writes, the remote
	// side may drain and terminate.
	EndInput() error

	// Close tears the transport down and releases resources. Idempotent.
	Close() error

	// Ready reports whether the transport can carry traffic.
	Ready() bool
}
