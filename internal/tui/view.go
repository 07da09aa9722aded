package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"caseflow/internal/chat"
	"caseflow/internal/confirm"
	"caseflow/internal/timeutil"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	routeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(0, 1)
)

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.confirmationView())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("y approve · n deny · tab select · space step · q quit"))
	return b.String()
}

func (m *Model) headerView() string {
	left := headerStyle.Render("caseflow") + "  " + routeStyle.Render(m.route)
	right := fmt.Sprintf("%s · %s", m.statusLabel(), m.progress())
	gap := m.vp.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + helpStyle.Render(right)
}

func (m *Model) renderConversation() string {
	var b strings.Builder
	for _, msg := range m.currentMessages() {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	for _, cont := range m.continuations {
		b.WriteString(okStyle.Render("↩ " + cont))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg chat.Message) string {
	var b strings.Builder
	switch msg.Role {
	case chat.User:
		b.WriteString(userStyle.Render("you") + "  " + msg.Content)
	case chat.Assistant:
		b.WriteString(agentStyle.Render("agent") + "  " + msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		line := fmt.Sprintf("⚙ %s", tc.Name)
		if !tc.HasResult() {
			line += " …"
		}
		b.WriteString("\n  " + toolStyle.Render(line))
	}
	return b.String()
}

func (m *Model) confirmationView() string {
	pending := m.pending()
	if len(pending) == 0 {
		snapshot := m.eng.Registry().Snapshot()
		settled := 0
		for _, c := range snapshot {
			if c.Status != confirm.StatusPending {
				settled++
			}
		}
		if settled > 0 {
			return helpStyle.Render(fmt.Sprintf("no pending confirmations (%d settled)", settled))
		}
		return helpStyle.Render("no pending confirmations")
	}

	cards := make([]string, 0, len(pending))
	for i, c := range pending {
		style := cardStyle
		if i == m.selected {
			style = selectStyle
		}
		body := pendingStyle.Render(c.ToolName) + "\n" +
			c.Description + "\n" +
			helpStyle.Render(timeutil.Ago(c.CreatedAt, time.Now()))
		cards = append(cards, style.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}
