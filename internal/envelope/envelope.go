// Package envelope classifies serialized tool-result payloads at the stream
// boundary. Every result is one of three shapes: a client action the host
// executes on its own authority, a permission request that must be confirmed
// by the user, or an opaque result left for the chat surface to render.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the parsed result variant.
type Kind int

const (
	// Opaque is a plain result with no required special handling.
	Opaque Kind = iota
	// ClientActionKind marks an autonomous, permission-free effect.
	ClientActionKind
	// PermissionRequestKind marks a capability that needs explicit approval.
	PermissionRequestKind
)

func (k Kind) String() string {
	switch k {
	case ClientActionKind:
		return "client_action"
	case PermissionRequestKind:
		return "permission_request"
	default:
		return "opaque"
	}
}

// ActionType names the client-side effect a ClientAction requests.
type ActionType string

const (
	ActionNavigate     ActionType = "navigate"
	ActionViewResource ActionType = "viewResource"
	ActionScrollTo     ActionType = "scrollTo"
	ActionRefreshPage  ActionType = "refreshPage"
)

// ClientAction is the `clientAction` member of the wire envelope. Payload is
// left raw; each action type owns its own payload shape.
type ClientAction struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PermissionRequest is the wire envelope for a gated capability.
type PermissionRequest struct {
	RequiresPermission bool            `json:"requiresPermission"`
	PermissionType     string          `json:"permissionType"`
	ToolName           string          `json:"toolName"`
	ToolCallID         string          `json:"toolCallId"`
	Arguments          json.RawMessage `json:"arguments,omitempty"`
	Description        string          `json:"description"`
}

// Result is the discriminated outcome of Parse. Exactly one of Action and
// Permission is set for the non-opaque kinds.
type Result struct {
	Kind       Kind
	Action     *ClientAction
	Permission *PermissionRequest
	Raw        string
}

// Parse inspects a serialized tool result and returns its tagged variant.
// Input that is not valid JSON is a terminal error; the caller logs it and
// never retries. JSON of any other shape comes back as an opaque result.
func Parse(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return Result{}, fmt.Errorf("tool result is not valid JSON")
	}

	var probe struct {
		ClientAction       *ClientAction `json:"clientAction"`
		RequiresPermission bool          `json:"requiresPermission"`
	}
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		// Valid JSON that is not an object (a bare string, number, array).
		return Result{Kind: Opaque, Raw: raw}, nil
	}

	if probe.ClientAction != nil && probe.ClientAction.Type != "" {
		return Result{Kind: ClientActionKind, Action: probe.ClientAction, Raw: raw}, nil
	}

	if probe.RequiresPermission {
		var req PermissionRequest
		if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
			return Result{}, fmt.Errorf("decode permission request: %w", err)
		}
		return Result{Kind: PermissionRequestKind, Permission: &req, Raw: raw}, nil
	}

	return Result{Kind: Opaque, Raw: raw}, nil
}
