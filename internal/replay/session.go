package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"caseflow/internal/action"
	"caseflow/internal/confirm"
	"caseflow/internal/engine"
	"caseflow/internal/envelope"
)

// Policy decides what a headless run does with pending confirmations after
// each step.
type Policy int

const (
	// PolicyHold leaves confirmations pending unless auto-approved.
	PolicyHold Policy = iota
	// PolicyApproveAll approves every pending confirmation.
	PolicyApproveAll
	// PolicyDenyAll denies every pending confirmation.
	PolicyDenyAll
)

// Options configure a headless replay session.
type Options struct {
	Policy      Policy
	AutoApprove []string
}

// Summary reports what a replay run did.
type Summary struct {
	Steps           int
	ActionsExecuted int
	ActionsFailed   int
	Approved        int
	Denied          int
	PendingLeft     int
	Continuations   []string
}

// Session owns a fully wired engine driven by transcript steps instead of a
// live transport.
type Session struct {
	eng     *engine.Engine
	opts    Options
	logger  *log.Logger
	summary Summary
}

// NewSession builds a headless session. invoker runs approved capabilities;
// recorder may be nil.
func NewSession(opts Options, invoker confirm.Invoker, recorder confirm.Recorder, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{opts: opts, logger: logger}

	hooks := action.Hooks{
		After: func(act envelope.ClientAction, res action.Result) {
			if res.Success {
				s.summary.ActionsExecuted++
			} else {
				s.summary.ActionsFailed++
			}
		},
	}
	executor := action.NewExecutor(
		&logRouter{logger: logger},
		&logScroll{logger: logger},
		hooks,
	)
	registry := confirm.NewRegistry(invoker, recorder, logger)
	s.eng = engine.New(executor, registry, (*continuationLog)(s), logger)
	return s
}

// Engine exposes the session's engine, mainly for tests and the TUI.
func (s *Session) Engine() *engine.Engine { return s.eng }

// Run plays every step through the engine, settling confirmations after each
// step according to the session policy, and returns what happened.
func (s *Session) Run(ctx context.Context, t *Transcript) Summary {
	for _, step := range t.Steps {
		s.eng.Observe(ctx, step.Messages, step.Status)
		s.settle(ctx)
	}
	s.summary.Steps = len(t.Steps)
	s.summary.PendingLeft = len(s.eng.Registry().Pending())
	return s.summary
}

func (s *Session) settle(ctx context.Context) {
	pending := s.eng.Registry().Pending()
	// Stable order so runs are reproducible.
	sort.Slice(pending, func(i, j int) bool { return pending[i].Key < pending[j].Key })

	for _, c := range pending {
		switch {
		case s.opts.Policy == PolicyDenyAll:
			s.eng.Deny(ctx, c.Key)
			s.summary.Denied++
		case s.opts.Policy == PolicyApproveAll || s.autoApproved(c.ToolName):
			s.eng.Approve(ctx, c.Key)
			s.summary.Approved++
		}
	}
}

func (s *Session) autoApproved(tool string) bool {
	for _, t := range s.opts.AutoApprove {
		if t == tool {
			return true
		}
	}
	return false
}

// continuationLog satisfies engine.Sender by recording the synthetic status
// strings a live host would post back into the conversation.
type continuationLog Session

func (c *continuationLog) SendMessage(_ context.Context, text string) error {
	c.summary.Continuations = append(c.summary.Continuations, text)
	c.logger.Info("continuation", "text", text)
	return nil
}

// EchoInvoker is a stand-in capability used by replay runs with no real
// backend: it reports what would have run.
func EchoInvoker(_ context.Context, toolName, argsJSON string) (string, error) {
	if argsJSON == "" {
		return fmt.Sprintf("%s executed", toolName), nil
	}
	return fmt.Sprintf("%s executed with %s", toolName, argsJSON), nil
}

type logRouter struct {
	logger *log.Logger
	// Path is the most recent route pushed, visible to tests and the TUI.
	Path string
}

func (r *logRouter) Push(path string) error {
	r.Path = path
	r.logger.Info("navigate", "path", path)
	return nil
}

func (r *logRouter) Refresh() error {
	r.logger.Info("refresh", "path", r.Path)
	return nil
}

type logScroll struct {
	logger *log.Logger
}

func (s *logScroll) ScrollToTop(bool)    { s.logger.Debug("scroll", "target", "top") }
func (s *logScroll) ScrollToBottom(bool) { s.logger.Debug("scroll", "target", "bottom") }

func (s *logScroll) ScrollToMarker(target string, _ bool) bool {
	s.logger.Debug("scroll", "marker", target)
	return true
}

func (s *logScroll) ScrollToElement(id string, _ bool) bool {
	s.logger.Debug("scroll", "element", id)
	return true
}
