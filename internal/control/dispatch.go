package control

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/hooks"
	"github.com/jpmartel/agentwire/internal/perms"
	"github.com/jpmartel/agentwire/internal/toolsrv"
)

// initTimeoutEnv overrides the initialize handshake timeout, in
// seconds.
const initTimeoutEnv = "AGENTWIRE_INIT_TIMEOUT"

// hookEntry is one registered hook callback with its stable wire id.
type hookEntry struct {
	id       string
	callback hooks.Callback
}

// Dispatcher owns the host-side callback surface: it registers the
// Options' hooks, permission check, and tool servers during the
// initialize handshake and answers the inbound control requests that
// exercise them.
type Dispatcher struct {
	log    *slog.Logger
	engine *Engine

	canUseTool perms.Callback
	servers    map[string]*toolsrv.Server

	// callbacks maps the wire callback ids announced at initialize to
	// the host functions behind them. Built once at construction;
	// read-only afterwards.
	callbacks  map[string]hooks.Callback
	hooksCfg   map[string][]map[string]any
	permMode   string
	initWindow time.Duration

	initMu     sync.RWMutex
	serverInfo map[string]any
}

// NewDispatcher builds the callback registry from the options and
// installs the inbound handlers on the engine.
func NewDispatcher(log *slog.Logger, engine *Engine, opts *config.Options) *Dispatcher {
	d := &Dispatcher{
		log:        log.With("component", "dispatcher"),
		engine:     engine,
		canUseTool: opts.CanUseTool,
		servers:    opts.ToolServers,
		callbacks:  make(map[string]hooks.Callback),
		permMode:   perms.Normalize(opts.PermissionMode),
		initWindow: initializeWindow(opts),
	}

	d.hooksCfg = d.registerHooks(opts.Hooks)

	engine.RegisterHandler("can_use_tool", d.handleCanUseTool)
	engine.RegisterHandler("hook_callback", d.handleHookCallback)
	engine.RegisterHandler("mcp_message", d.handleToolMessage)

	return d
}

// registerHooks flattens the hook config into the wire shape, minting
// a callback id per registered function. Ids are positional and stable
// for the life of the session.
func (d *Dispatcher) registerHooks(
	cfg map[hooks.Event][]*hooks.Matcher,
) map[string][]map[string]any {
	if len(cfg) == 0 {
		return nil
	}

	out := make(map[string][]map[string]any, len(cfg))
	next := 0

	for event, matchers := range cfg {
		entries := make([]map[string]any, 0, len(matchers))

		for _, m := range matchers {
			if m == nil || len(m.Hooks) == 0 {
				continue
			}

			ids := make([]string, 0, len(m.Hooks))

			for _, cb := range m.Hooks {
				id := fmt.Sprintf("hook_%d", next)
				next++

				d.callbacks[id] = cb
				ids = append(ids, id)
			}

			entry := map[string]any{
				"matcher":         m.Matcher,
				"hookCallbackIds": ids,
			}

			if m.Timeout != nil {
				entry["timeout"] = *m.Timeout
			}

			entries = append(entries, entry)
		}

		if len(entries) > 0 {
			out[string(event)] = entries
		}
	}

	d.log.Debug("Registered hook callbacks", "count", next)

	return out
}

// initializeWindow resolves the handshake timeout: explicit option,
// then environment override, then the default.
func initializeWindow(opts *config.Options) time.Duration {
	if opts.InitializeTimeout != nil {
		return *opts.InitializeTimeout
	}

	if raw := os.Getenv(initTimeoutEnv); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	return config.DefaultInitializeTimeout
}

// Initialize performs the capability handshake: it announces the
// registered hooks and records the remote side's advertised commands
// and output styles.
func (d *Dispatcher) Initialize(ctx context.Context) error {
	payload := map[string]any{"hooks": nil}
	if len(d.hooksCfg) > 0 {
		payload["hooks"] = d.hooksCfg
	}

	resp, err := d.engine.Call(ctx, "initialize", payload, d.initWindow)
	if err != nil {
		return fmt.Errorf("initialize handshake: %w", err)
	}

	d.initMu.Lock()
	d.serverInfo = resp.Result()
	d.initMu.Unlock()

	d.log.Info("Initialize handshake complete")

	return nil
}

// ServerInfo returns the capabilities recorded during Initialize, or
// nil before the handshake completes.
func (d *Dispatcher) ServerInfo() map[string]any {
	d.initMu.RLock()
	defer d.initMu.RUnlock()

	return d.serverInfo
}

// PermissionMode is the normalized starting permission mode.
func (d *Dispatcher) PermissionMode() string {
	return d.permMode
}

// handleCanUseTool answers a permission check for one pending tool
// invocation. A session without a callback allows everything.
func (d *Dispatcher) handleCanUseTool(ctx context.Context, req *Request) (map[string]any, error) {
	toolName, _ := req.Body["tool_name"].(string)
	input, _ := req.Body["input"].(map[string]any)

	d.log.Debug("Permission check", "tool", toolName)

	if d.canUseTool == nil {
		return map[string]any{
			"behavior":     "allow",
			"updatedInput": input,
		}, nil
	}

	permReq := &perms.Request{}
	if raw, ok := req.Body["permission_suggestions"].([]any); ok {
		permReq.Suggestions = perms.DecodeUpdates(raw)
	}

	result, err := d.canUseTool(ctx, toolName, input, permReq)
	if err != nil {
		return nil, fmt.Errorf("permission callback for %s: %w", toolName, err)
	}

	switch r := result.(type) {
	case *perms.Allow:
		out := map[string]any{"behavior": "allow"}

		updated := r.UpdatedInput
		if updated == nil {
			updated = input
		}

		out["updatedInput"] = updated

		if len(r.UpdatedPermissions) > 0 {
			encoded := make([]map[string]any, len(r.UpdatedPermissions))
			for i, u := range r.UpdatedPermissions {
				encoded[i] = u.Encode()
			}

			out["updatedPermissions"] = encoded
		}

		return out, nil

	case *perms.Deny:
		out := map[string]any{
			"behavior": "deny",
			"message":  r.Message,
		}

		if r.Interrupt {
			out["interrupt"] = true
		}

		return out, nil

	case nil:
		return nil, fmt.Errorf("permission callback for %s returned no result", toolName)

	default:
		return nil, fmt.Errorf("permission callback for %s returned unknown result %T", toolName, result)
	}
}

// handleHookCallback runs the callback named by callback_id against
// the typed hook input and returns its encoded output.
func (d *Dispatcher) handleHookCallback(ctx context.Context, req *Request) (map[string]any, error) {
	callbackID, _ := req.Body["callback_id"].(string)

	callback, ok := d.callbacks[callbackID]
	if !ok {
		return nil, fmt.Errorf("no hook callback registered for id %q", callbackID)
	}

	rawInput, _ := req.Body["input"].(map[string]any)
	input := hooks.ParseInput(rawInput)

	var toolUseID *string
	if id, ok := req.Body["tool_use_id"].(string); ok {
		toolUseID = &id
	}

	d.log.Debug("Hook callback", "callback_id", callbackID, "event", input.Event())

	output, err := callback(ctx, input, toolUseID)
	if err != nil {
		return nil, fmt.Errorf("hook callback %s: %w", callbackID, err)
	}

	return hooks.EncodeOutput(output), nil
}

// handleToolMessage routes a tunneled JSONRPC message to the named
// in-process tool server. Routing failures still produce a JSONRPC
// error response so the remote side's request never hangs.
func (d *Dispatcher) handleToolMessage(ctx context.Context, req *Request) (map[string]any, error) {
	serverName, _ := req.Body["server_name"].(string)
	message, _ := req.Body["message"].(map[string]any)

	server, ok := d.servers[serverName]
	if !ok {
		d.log.Warn("Tool message for unknown server", "server", serverName)

		return toolsrv.RouteErrorResponse(message,
			fmt.Sprintf("no tool server named %q", serverName)), nil
	}

	if message == nil {
		return toolsrv.RouteErrorResponse(message, "missing mcp message"), nil
	}

	return server.Route(ctx, message), nil
}
