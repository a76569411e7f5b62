// Package control implements the bidirectional control protocol engine.
//
// The Engine owns the transport and runs the single background read
// loop. Every incoming line is classified three ways: control
// responses resolve pending outbound requests by correlation id,
// control requests are dispatched to registered handlers, and
// everything else is decoded as an agent-output message and forwarded
// to the consumer in arrival order.
//
// The Dispatcher is the per-session callback registry: it owns the
// host's permission callback, the hook callbacks keyed by the ids
// announced during the initialize handshake, and any in-process tool
// servers, and it installs the handlers for the inbound control
// request subtypes built on them.
package control
