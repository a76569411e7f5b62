// Package perms defines the tool permission surface: the single host
// callback consulted before each tool invocation, its allow/deny
// results, and the permission rule updates a result may carry.
package perms

import "context"

// Mode selects how the remote side handles permission prompts.
type Mode string

const (
	ModeDefault           Mode = "default"
	ModeAcceptEdits       Mode = "acceptEdits"
	ModePlan              Mode = "plan"
	ModeBypassPermissions Mode = "bypassPermissions"
)

// Normalize maps legacy mode aliases onto current values.
func Normalize(mode string) string {
	switch mode {
	case "acceptAll":
		return string(ModeBypassPermissions)
	case "prompt":
		return string(ModeDefault)
	default:
		return mode
	}
}

// UpdateType classifies a permission rule update.
type UpdateType string

const (
	UpdateAddRules          UpdateType = "addRules"
	UpdateReplaceRules      UpdateType = "replaceRules"
	UpdateRemoveRules       UpdateType = "removeRules"
	UpdateSetMode           UpdateType = "setMode"
	UpdateAddDirectories    UpdateType = "addDirectories"
	UpdateRemoveDirectories UpdateType = "removeDirectories"
)

// Destination names where a permission update is persisted.
type Destination string

const (
	DestUserSettings    Destination = "userSettings"
	DestProjectSettings Destination = "projectSettings"
	DestLocalSettings   Destination = "localSettings"
	DestSession         Destination = "session"
)

// Behavior is the effect of a permission rule.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
	BehaviorAsk   Behavior = "ask"
)

// Rule matches a tool, optionally narrowed by rule content.
type Rule struct {
	ToolName    string
	RuleContent *string
}

// Update is one permission configuration change.
type Update struct {
	Type        UpdateType
	Rules       []*Rule
	Behavior    *Behavior
	Mode        *Mode
	Directories []string
	Destination *Destination
}

// Encode renders the update with the wire's camelCase field names.
func (u *Update) Encode() map[string]any {
	out := map[string]any{"type": string(u.Type)}

	if u.Destination != nil {
		out["destination"] = string(*u.Destination)
	}

	if len(u.Rules) > 0 {
		rules := make([]map[string]any, len(u.Rules))

		for i, r := range u.Rules {
			rm := map[string]any{"toolName": r.ToolName}
			if r.RuleContent != nil {
				rm["ruleContent"] = *r.RuleContent
			}

			rules[i] = rm
		}

		out["rules"] = rules
	}

	if u.Behavior != nil {
		out["behavior"] = string(*u.Behavior)
	}

	if u.Mode != nil {
		out["mode"] = string(*u.Mode)
	}

	if len(u.Directories) > 0 {
		out["directories"] = u.Directories
	}

	return out
}

// Request is the context handed to a permission callback, including
// any suggested permission updates the remote side proposed.
type Request struct {
	Suggestions []*Update
}

// Result is a permission decision: *Allow or *Deny.
type Result interface {
	Behavior() string
}

var (
	_ Result = (*Allow)(nil)
	_ Result = (*Deny)(nil)
)

// Allow permits the invocation. When UpdatedInput is set it replaces
// the tool's input entirely and is what the agent actually executes.
type Allow struct {
	UpdatedInput       map[string]any
	UpdatedPermissions []*Update
}

// Behavior implements Result.
func (a *Allow) Behavior() string { return "allow" }

// Deny blocks the invocation with a human-readable reason. Interrupt
// additionally cancels the whole turn.
type Deny struct {
	Message   string
	Interrupt bool
}

// Behavior implements Result.
func (d *Deny) Behavior() string { return "deny" }

// Callback is the single host-supplied permission check, consulted
// before each tool invocation.
type Callback func(
	ctx context.Context,
	toolName string,
	input map[string]any,
	req *Request,
) (Result, error)
