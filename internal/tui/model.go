// Package tui is a small terminal host for the action engine. It plays a
// recorded transcript, renders the conversation as it streams, executes
// client actions against the terminal surface, and prompts on pending
// confirmations.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"caseflow/config"
	"caseflow/internal/action"
	"caseflow/internal/chat"
	"caseflow/internal/confirm"
	"caseflow/internal/engine"
	"caseflow/internal/pubsub"
	"caseflow/internal/replay"
)

const stepInterval = 700 * time.Millisecond

type keyMap struct {
	Approve key.Binding
	Deny    key.Binding
	Next    key.Binding
	Select  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Approve: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y/enter", "approve")),
	Deny:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "deny")),
	Next:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "next step")),
	Select:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next confirmation")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type stepMsg struct{}

// confirmEventMsg carries one confirmation state change from the registry
// broker into the update loop.
type confirmEventMsg struct {
	event pubsub.Event[confirm.Event]
}

// Model drives the replay and owns the terminal surfaces the executor
// targets.
type Model struct {
	transcript *replay.Transcript
	cfg        *config.Store
	eng        *engine.Engine
	logger     *log.Logger

	vp      viewport.Model
	ready   bool
	stepIdx int
	done    bool
	events  <-chan pubsub.Event[confirm.Event]

	route         string
	refreshedAt   time.Time
	continuations []string
	selected      int
}

// New wires a TUI model around the transcript. recorder may be nil.
func New(t *replay.Transcript, cfg *config.Store, invoker confirm.Invoker, recorder confirm.Recorder, logger *log.Logger) *Model {
	if cfg == nil {
		cfg = config.NewStore(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	m := &Model{transcript: t, cfg: cfg, logger: logger, route: "/"}

	executor := action.NewExecutor(m, m, action.Hooks{})
	registry := confirm.NewRegistry(invoker, recorder, logger)
	m.eng = engine.New(executor, registry, m, logger)
	m.events = registry.Subscribe(context.Background())
	return m
}

// Run starts the program and blocks until the user quits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.Tick(stepInterval, func(time.Time) tea.Msg { return stepMsg{} }),
		m.waitForConfirmEvent(),
	)
}

// waitForConfirmEvent blocks on the registry subscription and re-arms itself
// after every delivery, so confirmation cards redraw on state changes rather
// than on polling.
func (m *Model) waitForConfirmEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return confirmEventMsg{event: ev}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 6
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight - footerHeight
		}
		m.refresh()
		return m, nil

	case stepMsg:
		m.advance()
		if m.done {
			return m, nil
		}
		return m, tea.Tick(stepInterval, func(time.Time) tea.Msg { return stepMsg{} })

	case confirmEventMsg:
		if n := len(m.pending()); m.selected >= n && n > 0 {
			m.selected = 0
		}
		m.refresh()
		return m, m.waitForConfirmEvent()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			m.advance()
		case key.Matches(msg, keys.Select):
			if n := len(m.pending()); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		// Approve and deny do not redraw here; the registry's event
		// subscription delivers the state change back to the update loop.
		case key.Matches(msg, keys.Approve):
			if c, ok := m.selectedConfirmation(); ok {
				m.eng.Approve(context.Background(), c.Key)
			}
		case key.Matches(msg, keys.Deny):
			if c, ok := m.selectedConfirmation(); ok {
				m.eng.Deny(context.Background(), c.Key)
			}
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) advance() {
	if m.stepIdx >= len(m.transcript.Steps) {
		m.done = true
		return
	}
	step := m.transcript.Steps[m.stepIdx]
	m.stepIdx++
	m.eng.Observe(context.Background(), step.Messages, step.Status)

	// Apply the host's auto-approve list; the registry never self-approves.
	for _, c := range m.pending() {
		if m.cfg.Current().AutoApproved(c.ToolName) {
			m.eng.Approve(context.Background(), c.Key)
		}
	}
	m.refresh()
}

func (m *Model) pending() []confirm.Confirmation {
	pending := m.eng.Registry().Pending()
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending
}

func (m *Model) selectedConfirmation() (confirm.Confirmation, bool) {
	pending := m.pending()
	if len(pending) == 0 {
		return confirm.Confirmation{}, false
	}
	if m.selected >= len(pending) {
		m.selected = 0
	}
	return pending[m.selected], true
}

func (m *Model) currentMessages() []chat.Message {
	if m.stepIdx == 0 {
		return nil
	}
	idx := m.stepIdx - 1
	if idx >= len(m.transcript.Steps) {
		idx = len(m.transcript.Steps) - 1
	}
	return m.transcript.Steps[idx].Messages
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderConversation())
	m.vp.GotoBottom()
}

// SendMessage satisfies engine.Sender: continuation text shows up as a
// synthetic transcript line.
func (m *Model) SendMessage(_ context.Context, text string) error {
	m.continuations = append(m.continuations, text)
	return nil
}

// Push satisfies action.Router against the TUI's fake route state.
func (m *Model) Push(path string) error {
	m.route = path
	return nil
}

// Refresh satisfies action.Router.
func (m *Model) Refresh() error {
	m.refreshedAt = time.Now()
	return nil
}

// The viewport is the TUI's scroll surface. Markers and element ids have no
// terminal equivalent beyond the transcript itself, so they resolve to the
// bottom of the view.

func (m *Model) ScrollToTop(bool)    { m.vp.GotoTop() }
func (m *Model) ScrollToBottom(bool) { m.vp.GotoBottom() }

func (m *Model) ScrollToMarker(target string, _ bool) bool {
	if strings.TrimSpace(target) == "" {
		return false
	}
	m.vp.GotoBottom()
	return true
}

func (m *Model) ScrollToElement(string, bool) bool { return false }

func (m *Model) statusLabel() chat.Status {
	if m.stepIdx == 0 || m.stepIdx > len(m.transcript.Steps) {
		return chat.StatusReady
	}
	return m.transcript.Steps[m.stepIdx-1].Status
}

func (m *Model) progress() string {
	return fmt.Sprintf("step %d/%d", m.stepIdx, len(m.transcript.Steps))
}
