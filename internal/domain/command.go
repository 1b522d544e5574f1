package domain

import (
	"context"
	"encoding/json"
)

// CommandBridge relays one named command to the attached Figma plugin and
// awaits its tagged reply. Params pass through untouched; the result comes
// back untouched.
//
// Call fails with ErrNoPlugin when no plugin is attached, ErrConnectionLost
// when the plugin vanishes mid-call, ErrCommandTimeout when no reply arrives
// in time, or a *RemoteError when the plugin reports a failure.
type CommandBridge interface {
	Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)
	Connected() bool
}

// CommandExecutor is the caller-facing surface: the MCP layer dispatches
// every tool invocation through it.
type CommandExecutor interface {
	Execute(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)
}
