// Package engine orchestrates tool-call results arriving inside a streaming
// conversation. It classifies each result attached to the latest assistant
// message exactly once, hands autonomous client actions to the action
// executor, gates mutating capabilities behind the confirmation registry,
// and relays decisions back into the conversation.
package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"caseflow/internal/action"
	"caseflow/internal/chat"
	"caseflow/internal/confirm"
	"caseflow/internal/envelope"
)

// ResetThreshold is how far the message-list length must drop between two
// observations before the list is treated as a new conversation. Smaller
// drops are edits or branches within the same conversation. This is a
// best-effort heuristic, not a correctness guarantee; do not tune it.
const ResetThreshold = 5

// Sender posts short synthetic status strings back into the conversation
// stream after a gated action completes, fails, or is denied.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Engine consumes the evolving message list plus a connection status and
// guarantees at-most-once handling per tool call across re-renders. All
// state transitions happen synchronously inside Observe; the engine is
// driven by a single host loop.
type Engine struct {
	executor *action.Executor
	registry *confirm.Registry
	sender   Sender
	logger   *log.Logger

	processed map[string]struct{}
	executed  map[string]struct{}
	prevLen   int
	seenAny   bool
}

// New wires an engine to its collaborators. sender may be nil when the host
// has no continuation channel (headless replays).
func New(executor *action.Executor, registry *confirm.Registry, sender Sender, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		executor:  executor,
		registry:  registry,
		sender:    sender,
		logger:    logger,
		processed: make(map[string]struct{}),
		executed:  make(map[string]struct{}),
	}
}

// Registry exposes the confirmation registry so hosts can list pending
// confirmations and subscribe to state changes.
func (e *Engine) Registry() *confirm.Registry { return e.registry }

// callKey derives the stable dedup identity of a tool call from its name and
// position within its owning message.
func callKey(name string, index int) string {
	return fmt.Sprintf("%s#%d", name, index)
}

// actionKey extends a call key with the action type so distinct actions from
// one call are tracked independently.
func actionKey(key string, t envelope.ActionType) string {
	return key + ":" + string(t)
}

// Observe runs one pass over the current render of the conversation. It is
// idempotent: feeding the same message list repeatedly executes nothing
// twice.
func (e *Engine) Observe(ctx context.Context, messages []chat.Message, status chat.Status) {
	e.trackReset(len(messages))

	if status == chat.StatusError {
		return
	}
	if len(messages) == 0 {
		return
	}
	last := messages[len(messages)-1]
	if last.Role != chat.Assistant {
		return
	}

	for i, tc := range last.ToolCalls {
		key := callKey(tc.Name, i)
		if _, done := e.processed[key]; done {
			continue
		}
		if !tc.HasResult() {
			// Still executing upstream; revisit on the next render.
			continue
		}
		e.processed[key] = struct{}{}

		parsed, err := envelope.Parse(tc.Result)
		if err != nil {
			e.logger.Warn("unparseable tool result", "tool", tc.Name, "key", key, "err", err)
			continue
		}

		switch parsed.Kind {
		case envelope.ClientActionKind:
			e.runClientAction(key, tc.Name, *parsed.Action)
		case envelope.PermissionRequestKind:
			ckey := parsed.Permission.ToolCallID
			if ckey == "" {
				ckey = key
			}
			if err := e.registry.Register(ckey, tc.Result); err != nil {
				e.logger.Warn("failed to register confirmation", "tool", tc.Name, "key", ckey, "err", err)
			}
		}
	}
}

// runClientAction executes an autonomous action at most once per (call,
// action type) pair. It runs regardless of pending confirmations and
// regardless of the stream still being open; navigation must feel
// instantaneous.
func (e *Engine) runClientAction(key, tool string, act envelope.ClientAction) {
	ak := actionKey(key, act.Type)
	if _, done := e.executed[ak]; done {
		return
	}
	e.executed[ak] = struct{}{}

	if res := e.executor.Execute(act); !res.Success {
		e.logger.Warn("client action failed", "tool", tool, "type", act.Type, "err", res.Err)
	}
}

// trackReset watches the message-list length across renders and clears all
// orchestration state when the list shrinks past ResetThreshold, which means
// the conversation object was swapped entirely.
func (e *Engine) trackReset(length int) {
	if e.seenAny && e.prevLen-length > ResetThreshold {
		e.Reset()
	}
	e.prevLen = length
	e.seenAny = true
}

// Reset discards every dedup set and all tracked confirmations. Anything
// observed afterward belongs to a different conversation context.
func (e *Engine) Reset() {
	clear(e.processed)
	clear(e.executed)
	e.registry.ClearAll()
}

// Approve passes the decision through to the registry, then translates the
// returned outcome into one continuation message so the agent's context
// stays in sync with the real-world effect.
func (e *Engine) Approve(ctx context.Context, key string) {
	out, ok := e.registry.Approve(ctx, key)
	if !ok {
		return
	}
	var text string
	if out.Err != nil {
		text = fmt.Sprintf("Tool call %s (%s) failed: %v", out.ToolCallID, out.ToolName, out.Err)
	} else {
		text = fmt.Sprintf("Tool call %s (%s) completed: %s", out.ToolCallID, out.ToolName, out.Result)
	}
	e.send(ctx, text)
}

// Deny marks the confirmation denied without running the capability and
// sends exactly one continuation message naming the denied call.
func (e *Engine) Deny(ctx context.Context, key string) {
	c, ok := e.registry.Deny(key)
	if !ok {
		return
	}
	e.send(ctx, fmt.Sprintf("Tool call %s (%s) was denied by the user.", key, c.ToolName))
}

func (e *Engine) send(ctx context.Context, text string) {
	if e.sender == nil {
		return
	}
	if err := e.sender.SendMessage(ctx, text); err != nil {
		e.logger.Warn("failed to send continuation message", "err", err)
	}
}
