package config

import (
	"log/slog"
	"time"

	"github.com/jpmartel/agentwire/internal/hooks"
	"github.com/jpmartel/agentwire/internal/perms"
	"github.com/jpmartel/agentwire/internal/toolsrv"
)

// Options configures a session. The zero value is usable when a
// Transport is injected; otherwise Command must name the agent process
// to spawn.
type Options struct {
	// Logger receives debug/info/warn/error records from every
	// component. Nil disables logging.
	Logger *slog.Logger

	// Command is the agent process argv, verbatim: Command[0] is the
	// executable, the rest its arguments. The module never constructs
	// or rewrites flags. Ignored when Transport is set.
	Command []string

	// Cwd is the working directory for the agent process.
	Cwd string

	// Env adds environment variables for the agent process on top of
	// the parent environment.
	Env map[string]string

	// Hooks registers lifecycle hook callbacks, keyed by event.
	Hooks map[hooks.Event][]*hooks.Matcher

	// CanUseTool is consulted before each tool invocation. Nil allows
	// everything.
	CanUseTool perms.Callback

	// ToolServers exposes in-process tool servers to the agent, keyed
	// by server name.
	ToolServers map[string]*toolsrv.Server

	// PermissionMode is the starting permission mode. Legacy aliases
	// are normalized.
	PermissionMode string

	// InitializeTimeout bounds the initialize handshake. Nil uses the
	// default (60s), overridable via AGENTWIRE_INIT_TIMEOUT seconds.
	InitializeTimeout *time.Duration

	// Stderr receives the agent process's stderr lines as they arrive.
	Stderr func(string)

	// MaxLineBytes caps the size of a single transport line. Nil uses
	// the default (1 MiB).
	MaxLineBytes *int

	// Transport injects a custom transport. Nil spawns Command through
	// the stdio transport.
	Transport Transport `json:"-"`
}

// DefaultInitializeTimeout bounds the initialize handshake when the
// host does not say otherwise.
const DefaultInitializeTimeout = 60 * time.Second
