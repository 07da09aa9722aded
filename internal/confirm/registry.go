// Package confirm tracks in-flight permission requests and owns their
// lifecycle: pending through approved or denied, then executed or failed.
// The registry is the only holder of mutable confirmation state; everything
// it hands out is a copy.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"caseflow/internal/csync"
	"caseflow/internal/envelope"
	"caseflow/internal/pubsub"
)

// Status is the lifecycle state of one confirmation. Transitions are
// one-directional; a denied or completed confirmation never comes back.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrDenied reports that the user rejected a permission request.
var ErrDenied = errors.New("permission denied")

// Confirmation is the tracked lifecycle object for one permission request.
type Confirmation struct {
	ID          string
	Key         string
	ToolName    string
	Description string
	Arguments   string
	Status      Status
	Result      string
	Err         string
	CreatedAt   time.Time
}

// Outcome is what Approve returns once the gated capability has run (or
// Deny, for the denial path). The caller translates it into a continuation
// message; the registry itself never talks to the conversation.
type Outcome struct {
	Key        string
	ID         string
	ToolName   string
	ToolCallID string
	Status     Status
	Result     string
	Err        error
}

// Invoker runs a named mutating capability with its stored arguments. The
// host supplies it; tool names are opaque to the registry.
type Invoker func(ctx context.Context, toolName, argsJSON string) (string, error)

// Recorder persists executed outcomes so they survive a host reload.
// Recording failures are non-fatal to the approval itself.
type Recorder interface {
	Record(ctx context.Context, out Outcome) error
}

// Event notifies presentation layers of a confirmation state change.
type Event struct {
	Key    string
	Status Status
}

// Registry is a keyed store of in-flight permission requests.
type Registry struct {
	// mu serializes status transitions so the pending guard cannot race.
	mu       sync.Mutex
	entries  *csync.Map[string, Confirmation]
	invoker  Invoker
	recorder Recorder
	broker   *pubsub.Broker[Event]
	logger   *log.Logger
}

// NewRegistry builds a registry around the host's capability invoker.
// recorder may be nil when persistence is not wanted.
func NewRegistry(invoker Invoker, recorder Recorder, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		entries:  csync.NewMap[string, Confirmation](),
		invoker:  invoker,
		recorder: recorder,
		broker:   pubsub.NewBroker[Event](),
		logger:   logger,
	}
}

// Subscribe exposes confirmation state changes to presentation layers.
func (r *Registry) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return r.broker.Subscribe(ctx)
}

// Register parses a serialized permission envelope and inserts a pending
// confirmation under key. Registering an existing key is a no-op.
func (r *Registry) Register(key, rawEnvelope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries.Get(key); exists {
		return nil
	}

	parsed, err := envelope.Parse(rawEnvelope)
	if err != nil {
		return fmt.Errorf("register confirmation %s: %w", key, err)
	}
	if parsed.Kind != envelope.PermissionRequestKind {
		return fmt.Errorf("register confirmation %s: payload is not a permission request", key)
	}
	req := parsed.Permission

	args := ""
	if len(req.Arguments) > 0 {
		args = string(req.Arguments)
	}
	r.entries.Set(key, Confirmation{
		ID:          uuid.New().String(),
		Key:         key,
		ToolName:    req.ToolName,
		Description: req.Description,
		Arguments:   args,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	})
	r.broker.Publish(pubsub.CreatedEvent, Event{Key: key, Status: StatusPending})
	return nil
}

// Get returns a copy of the confirmation for key.
func (r *Registry) Get(key string) (Confirmation, bool) {
	return r.entries.Get(key)
}

// HasPending reports whether key holds a confirmation still awaiting a
// decision.
func (r *Registry) HasPending(key string) bool {
	c, ok := r.entries.Get(key)
	return ok && c.Status == StatusPending
}

// Pending returns copies of every confirmation awaiting a decision.
func (r *Registry) Pending() []Confirmation {
	var out []Confirmation
	r.entries.Range(func(_ string, c Confirmation) bool {
		if c.Status == StatusPending {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Snapshot returns a point-in-time copy of every confirmation. Mutating the
// returned map has no effect on the registry.
func (r *Registry) Snapshot() map[string]Confirmation {
	return r.entries.Snapshot()
}

// Len reports the number of tracked confirmations in any status.
func (r *Registry) Len() int { return r.entries.Len() }

// Approve transitions a pending confirmation to executing, invokes the named
// capability with the stored arguments, and settles it to completed or
// failed. The capability runs at most once per confirmation: approving a
// confirmation that is not pending is a no-op and the second return is
// false. Persistence failures are logged and do not mask the execution
// outcome.
func (r *Registry) Approve(ctx context.Context, key string) (Outcome, bool) {
	r.mu.Lock()
	c, ok := r.entries.Get(key)
	if !ok || c.Status != StatusPending {
		r.mu.Unlock()
		return Outcome{}, false
	}
	c.Status = StatusExecuting
	r.entries.Set(key, c)
	r.mu.Unlock()
	r.broker.Publish(pubsub.UpdatedEvent, Event{Key: key, Status: StatusExecuting})

	result, err := r.invoke(ctx, c.ToolName, c.Arguments)

	out := Outcome{
		Key:        key,
		ID:         c.ID,
		ToolName:   c.ToolName,
		ToolCallID: key,
		Result:     result,
		Err:        err,
	}
	if err != nil {
		c.Status = StatusFailed
		c.Err = err.Error()
	} else {
		c.Status = StatusCompleted
		c.Result = result
	}
	out.Status = c.Status

	// ClearAll may have raced the invoker; a cleared registry must not get
	// the settled entry back.
	r.mu.Lock()
	if _, live := r.entries.Get(key); live {
		r.entries.Set(key, c)
	}
	r.mu.Unlock()
	r.broker.Publish(pubsub.UpdatedEvent, Event{Key: key, Status: c.Status})

	if r.recorder != nil {
		if recErr := r.recorder.Record(ctx, out); recErr != nil {
			r.logger.Warn("failed to persist confirmation outcome", "key", key, "err", recErr)
		}
	}
	return out, true
}

func (r *Registry) invoke(ctx context.Context, toolName, args string) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", toolName, rec)
		}
	}()
	if r.invoker == nil {
		return "", fmt.Errorf("no invoker configured for tool %s", toolName)
	}
	return r.invoker(ctx, toolName, args)
}

// Deny transitions a pending confirmation to denied without invoking the
// capability. The denied confirmation comes back so the caller can relay the
// decision into the conversation.
func (r *Registry) Deny(key string) (Confirmation, bool) {
	r.mu.Lock()
	c, ok := r.entries.Get(key)
	if !ok || c.Status != StatusPending {
		r.mu.Unlock()
		return Confirmation{}, false
	}
	c.Status = StatusDenied
	c.Err = ErrDenied.Error()
	r.entries.Set(key, c)
	r.mu.Unlock()
	r.broker.Publish(pubsub.UpdatedEvent, Event{Key: key, Status: StatusDenied})
	return c, true
}

// ClearAll drops every confirmation regardless of status. Used only when the
// conversation itself is replaced.
func (r *Registry) ClearAll() {
	r.entries.Clear()
	r.broker.Publish(pubsub.DeletedEvent, Event{})
}
