// Package action performs the client-side effects requested by autonomous
// tool results: route changes, scrolling, and soft refreshes. The executor
// holds no state beyond the current call and never panics; failures of the
// underlying host capabilities come back as failure results.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"caseflow/internal/envelope"
)

// ErrCanceled reports that a Before hook vetoed the action.
var ErrCanceled = errors.New("action canceled by host")

// Router is the host's navigation capability.
type Router interface {
	// Push performs a client-side route change to path.
	Push(path string) error
	// Refresh reloads the current view's server data without a navigation.
	Refresh() error
}

// ScrollSurface is the host's scroll capability. ScrollToMarker and
// ScrollToElement report whether the target resolved.
type ScrollSurface interface {
	ScrollToTop(smooth bool)
	ScrollToBottom(smooth bool)
	ScrollToMarker(target string, smooth bool) bool
	ScrollToElement(id string, smooth bool) bool
}

// Result is the outcome of a single action.
type Result struct {
	Success bool
	Err     error
}

func ok() Result                      { return Result{Success: true} }
func fail(err error) Result           { return Result{Err: err} }
func failf(f string, a ...any) Result { return Result{Err: fmt.Errorf(f, a...)} }

// Hooks let the host observe or veto individual actions. Before returning
// false cancels the action with ErrCanceled and no effect is performed.
// After sees every outcome, success or failure.
type Hooks struct {
	Before func(envelope.ClientAction) bool
	After  func(envelope.ClientAction, Result)
}

// Executor dispatches client actions to the host capabilities.
type Executor struct {
	router Router
	scroll ScrollSurface
	hooks  Hooks
}

// NewExecutor wires an executor to the host's router and scroll surface.
func NewExecutor(router Router, scroll ScrollSurface, hooks Hooks) *Executor {
	return &Executor{router: router, scroll: scroll, hooks: hooks}
}

type navigatePayload struct {
	Path string `json:"path"`
}

type viewResourcePayload struct {
	ResourceID string `json:"resourceId"`
	Section    string `json:"section,omitempty"`
}

type scrollPayload struct {
	Target string `json:"target"`
	Smooth bool   `json:"smooth,omitempty"`
}

// Execute performs one client action and reports the outcome. It never
// raises: panics from host capabilities are converted to failure results.
func (e *Executor) Execute(act envelope.ClientAction) Result {
	if e.hooks.Before != nil && !e.hooks.Before(act) {
		res := fail(ErrCanceled)
		e.observe(act, res)
		return res
	}

	res := e.dispatch(act)
	e.observe(act, res)
	return res
}

// ExecuteAll runs actions strictly in order and stops at the first failure,
// returning only the results produced so far.
func (e *Executor) ExecuteAll(actions []envelope.ClientAction) []Result {
	results := make([]Result, 0, len(actions))
	for _, act := range actions {
		res := e.Execute(act)
		results = append(results, res)
		if !res.Success {
			break
		}
	}
	return results
}

func (e *Executor) observe(act envelope.ClientAction, res Result) {
	if e.hooks.After != nil {
		e.hooks.After(act, res)
	}
}

func (e *Executor) dispatch(act envelope.ClientAction) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failf("%s action panicked: %v", act.Type, r)
		}
	}()

	switch act.Type {
	case envelope.ActionNavigate:
		return e.navigate(act.Payload)
	case envelope.ActionViewResource:
		return e.viewResource(act.Payload)
	case envelope.ActionScrollTo:
		return e.scrollTo(act.Payload)
	case envelope.ActionRefreshPage:
		if err := e.router.Refresh(); err != nil {
			return fail(err)
		}
		return ok()
	default:
		return failf("unknown client action type: %q", act.Type)
	}
}

func (e *Executor) navigate(payload json.RawMessage) Result {
	var p navigatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return failf("decode navigate payload: %w", err)
	}
	if strings.TrimSpace(p.Path) == "" {
		return failf("navigate requires a path")
	}
	if err := e.router.Push(p.Path); err != nil {
		return fail(err)
	}
	return ok()
}

func (e *Executor) viewResource(payload json.RawMessage) Result {
	var p viewResourcePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return failf("decode viewResource payload: %w", err)
	}
	if strings.TrimSpace(p.ResourceID) == "" {
		return failf("viewResource requires a resourceId")
	}
	if err := e.router.Push(ResourcePath(p.ResourceID, p.Section)); err != nil {
		return fail(err)
	}
	return ok()
}

// ResourcePath derives the route for a resource view. The "edit" and
// "timeline" sections map to sub-routes; anything else lands on the
// resource itself.
func ResourcePath(resourceID, section string) string {
	switch section {
	case "edit":
		return fmt.Sprintf("/resources/%s/edit", resourceID)
	case "timeline":
		return fmt.Sprintf("/resources/%s/timeline", resourceID)
	default:
		return fmt.Sprintf("/resources/%s", resourceID)
	}
}

func (e *Executor) scrollTo(payload json.RawMessage) Result {
	var p scrollPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return failf("decode scrollTo payload: %w", err)
	}
	switch p.Target {
	case "top":
		e.scroll.ScrollToTop(p.Smooth)
		return ok()
	case "bottom":
		e.scroll.ScrollToBottom(p.Smooth)
		return ok()
	}
	if e.scroll.ScrollToMarker(p.Target, p.Smooth) {
		return ok()
	}
	if e.scroll.ScrollToElement(p.Target, p.Smooth) {
		return ok()
	}
	return failf("scroll target not found: %q", p.Target)
}
