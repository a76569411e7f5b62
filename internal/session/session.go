// Package session implements the stateful facade over the control
// engine: connect, send user turns, iterate responses until the
// turn's result, issue control operations, close.
package session

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/control"
	"github.com/jpmartel/agentwire/internal/errs"
	"github.com/jpmartel/agentwire/internal/perms"
	"github.com/jpmartel/agentwire/internal/wire"
)

// Per-operation response windows.
const (
	interruptTimeout   = 5 * time.Second
	setModeTimeout     = 5 * time.Second
	setModelTimeout    = 5 * time.Second
	rewindFilesTimeout = 10 * time.Second
)

// Session drives one conversation with an agent process. A Session is
// single-use: once closed it cannot be reconnected.
type Session struct {
	log  *slog.Logger
	opts *config.Options

	engine     *control.Engine
	dispatcher *control.Dispatcher

	mu        sync.Mutex
	connected bool
	closed    bool
}

// New builds an unconnected session from the options. transport is
// the concrete transport to drive; the caller picks it (Options.
// Transport or a spawned process transport).
func New(opts *config.Options, transport config.Transport) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	engine := control.NewEngine(log, transport)
	dispatcher := control.NewDispatcher(log, engine, opts)

	return &Session{
		log:        log.With("component", "session"),
		opts:       opts,
		engine:     engine,
		dispatcher: dispatcher,
	}
}

// Connect establishes the transport, runs the initialize handshake,
// and applies the starting permission mode.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return errs.ErrSessionClosed
	}

	if s.connected {
		s.mu.Unlock()

		return errs.ErrAlreadyConnected
	}

	s.mu.Unlock()

	if err := s.engine.Connect(ctx); err != nil {
		return err
	}

	if err := s.dispatcher.Initialize(ctx); err != nil {
		_ = s.engine.Close()

		return err
	}

	if mode := s.dispatcher.PermissionMode(); mode != "" {
		if err := s.SetPermissionMode(ctx, mode); err != nil {
			_ = s.engine.Close()

			return fmt.Errorf("apply starting permission mode: %w", err)
		}
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	s.log.Info("Session connected")

	return nil
}

// Send writes one user turn. An empty sessionID targets the default
// session.
func (s *Session) Send(ctx context.Context, prompt, sessionID string) error {
	if sessionID == "" {
		sessionID = "default"
	}

	s.log.Debug("Sending user turn", "prompt_len", len(prompt), "session_id", sessionID)

	payload := map[string]any{
		"type":               "user",
		"message":            map[string]any{"role": "user", "content": prompt},
		"parent_tool_use_id": nil,
		"session_id":         sessionID,
	}

	if err := s.engine.WriteMessage(ctx, payload); err != nil {
		return fmt.Errorf("send user turn: %w", err)
	}

	return nil
}

// NewSessionID mints a fresh session identifier for hosts running
// several conversations over one connection.
func NewSessionID() string {
	return uuid.NewString()
}

// Messages iterates the agent output sequence without a terminal
// condition: every decoded message and every per-line failure, until
// the connection ends or ctx is cancelled.
func (s *Session) Messages(ctx context.Context) iter.Seq2[wire.Message, error] {
	return func(yield func(wire.Message, error) bool) {
		for {
			select {
			case out, ok := <-s.engine.Output():
				if !ok {
					if err := s.engine.Err(); err != nil {
						yield(nil, err)
					}

					return
				}

				if !yield(out.Msg, out.Err) {
					return
				}

			case <-ctx.Done():
				yield(nil, ctx.Err())

				return
			}
		}
	}
}

// Responses iterates the current turn: it stops after yielding the
// turn's result message. Per-line decode failures are yielded and
// iteration continues.
func (s *Session) Responses(ctx context.Context) iter.Seq2[wire.Message, error] {
	return func(yield func(wire.Message, error) bool) {
		for msg, err := range s.Messages(ctx) {
			if !yield(msg, err) {
				return
			}

			if err != nil {
				continue
			}

			if _, done := msg.(*wire.ResultMessage); done {
				return
			}
		}
	}
}

// Interrupt cancels the in-flight turn.
func (s *Session) Interrupt(ctx context.Context) error {
	s.log.Info("Interrupting")

	if _, err := s.engine.Call(ctx, "interrupt", nil, interruptTimeout); err != nil {
		return fmt.Errorf("interrupt: %w", err)
	}

	return nil
}

// SetPermissionMode changes the permission mode mid-conversation.
// Legacy aliases are accepted and normalized.
func (s *Session) SetPermissionMode(ctx context.Context, mode string) error {
	normalized := perms.Normalize(mode)

	s.log.Info("Setting permission mode", "mode", normalized)

	payload := map[string]any{"mode": normalized}

	if _, err := s.engine.Call(ctx, "set_permission_mode", payload, setModeTimeout); err != nil {
		return fmt.Errorf("set permission mode to %q: %w", normalized, err)
	}

	return nil
}

// SetModel changes the model mid-conversation. Nil selects the
// default model.
func (s *Session) SetModel(ctx context.Context, model *string) error {
	s.log.Info("Setting model", "model", model)

	payload := map[string]any{"model": model}

	if _, err := s.engine.Call(ctx, "set_model", payload, setModelTimeout); err != nil {
		return fmt.Errorf("set model: %w", err)
	}

	return nil
}

// RewindFiles restores tracked files to their state at an earlier user
// message. Requires file checkpointing on the agent side.
func (s *Session) RewindFiles(ctx context.Context, userMessageID string) error {
	s.log.Info("Rewinding files", "user_message_id", userMessageID)

	payload := map[string]any{"user_message_id": userMessageID}

	if _, err := s.engine.Call(ctx, "rewind_files", payload, rewindFilesTimeout); err != nil {
		return fmt.Errorf("rewind files: %w", err)
	}

	return nil
}

// EndInput signals that no more user turns will be sent. The agent
// finishes pending work and ends the output sequence on its own.
func (s *Session) EndInput() error {
	s.log.Debug("Ending input stream")

	return s.engine.EndInput()
}

// ServerInfo returns the capabilities recorded during the initialize
// handshake, or nil before Connect completes.
func (s *Session) ServerInfo() map[string]any {
	return s.dispatcher.ServerInfo()
}

// Close tears the session down. Idempotent; a closed session stays
// closed.
func (s *Session) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	s.connected = false
	s.mu.Unlock()

	s.log.Debug("Closing session")

	return s.engine.Close()
}
