package agentwire

import (
	"context"
	"iter"
	"log/slog"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/session"
	"github.com/jpmartel/agentwire/internal/stdio"
)

// Client is an interactive, multi-turn connection to an agent
// process. Create with NewClient, Connect, then alternate Send and
// Responses. A Client is single-use: after Close it cannot be
// reconnected.
type Client struct {
	session *session.Session
}

// NewClient builds an unconnected client. A nil opts is equivalent to
// the zero Options, which requires either Command or Transport to be
// set before Connect.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = NopLogger()
	}

	return &Client{
		session: session.New(opts, pickTransport(log, opts)),
	}
}

// pickTransport uses the injected transport when present, otherwise
// spawns opts.Command through the stdio transport.
func pickTransport(log *slog.Logger, opts *Options) config.Transport {
	if opts.Transport != nil {
		return opts.Transport
	}

	return stdio.New(log, opts)
}

// Connect establishes the transport and runs the capability
// handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.session.Connect(ctx)
}

// Send writes one user turn. An empty sessionID targets the default
// session; use NewSessionID for parallel conversations.
func (c *Client) Send(ctx context.Context, prompt, sessionID string) error {
	return c.session.Send(ctx, prompt, sessionID)
}

// Responses iterates the current turn's messages and stops after the
// turn's ResultMessage. Per-line decode failures are yielded inline
// and iteration continues past them.
func (c *Client) Responses(ctx context.Context) iter.Seq2[Message, error] {
	return c.session.Responses(ctx)
}

// Messages iterates all agent output until the connection ends or ctx
// is cancelled, with no terminal condition.
func (c *Client) Messages(ctx context.Context) iter.Seq2[Message, error] {
	return c.session.Messages(ctx)
}

// Interrupt cancels the in-flight turn.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.session.Interrupt(ctx)
}

// SetPermissionMode changes the permission mode mid-conversation.
func (c *Client) SetPermissionMode(ctx context.Context, mode string) error {
	return c.session.SetPermissionMode(ctx, mode)
}

// SetModel changes the model mid-conversation. Nil selects the
// default model.
func (c *Client) SetModel(ctx context.Context, model *string) error {
	return c.session.SetModel(ctx, model)
}

// RewindFiles restores tracked files to their state at an earlier
// user message.
func (c *Client) RewindFiles(ctx context.Context, userMessageID string) error {
	return c.session.RewindFiles(ctx, userMessageID)
}

// EndInput signals that no more user turns will be sent; the agent
// drains pending work and ends the output sequence on its own.
func (c *Client) EndInput() error {
	return c.session.EndInput()
}

// ServerInfo returns the capabilities the agent advertised during the
// handshake, or nil before Connect.
func (c *Client) ServerInfo() map[string]any {
	return c.session.ServerInfo()
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	return c.session.Close()
}

// NewSessionID mints a fresh session identifier for hosts running
// several conversations over one connection.
func NewSessionID() string {
	return session.NewSessionID()
}

// WithClient runs fn with a connected client and closes it afterwards,
// whatever fn returns.
func WithClient(ctx context.Context, opts *Options, fn func(*Client) error) error {
	client := NewClient(opts)

	if err := client.Connect(ctx); err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	return fn(client)
}
