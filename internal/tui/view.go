package tui

import (
	"fmt"
	"strings"

	"gatewayctl/internal/notify"
	"gatewayctl/internal/panel"

	"github.com/charmbracelet/lipgloss"
)

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return "Stopping Drizzle Gateway...\n"
	}

	sections := []string{
		m.renderHeader(),
		m.renderPanel(),
	}
	if m.confirm != nil {
		sections = append(sections, m.renderConfirm())
	}
	if log := m.renderLog(); log != "" {
		sections = append(sections, log)
	}
	sections = append(sections, m.renderStatusBar(), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) running() bool {
	for _, it := range m.items {
		if it.CommandID == panel.CommandStop {
			return true
		}
	}
	return false
}

func (m Model) renderHeader() string {
	state := stateStoppedStyle.Render("Stopped")
	switch {
	case m.progress != "":
		state = stateStartingStyle.Render(m.spinner.View() + " " + m.progress)
	case m.running():
		state = stateRunningStyle.Render("Running")
	}
	return headerStyle.Render("Drizzle Gateway") + " " + state
}

func (m Model) renderPanel() string {
	var b strings.Builder
	for i, it := range m.items {
		icon := itemIcons[it.Icon]
		line := fmt.Sprintf("%s %s", icon, it.Label)
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if item, ok := m.selected(); ok {
		b.WriteString(tooltipStyle.Render(item.Tooltip))
	}
	return panelStyle.Render(b.String())
}

func (m Model) renderConfirm() string {
	prompt := m.confirm.Message + "\n\n" + m.help.ShortHelpView(m.keys.ConfirmHelp())
	return confirmStyle.Render(prompt)
}

func (m Model) renderLog() string {
	if m.logViewport.Height < minLogHeight {
		return ""
	}
	title := logTitleStyle.Render("Gateway Log")
	return logPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, m.logViewport.View()))
}

func (m Model) renderStatusBar() string {
	if m.statusMessage == "" {
		return statusIdleStyle.Render(" ")
	}
	style := statusInfoStyle
	switch m.statusLevel {
	case notify.LevelWarn:
		style = statusWarnStyle
	case notify.LevelError:
		style = statusErrorStyle
	}
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(m.statusMessage)
}

// resizeLog gives the log viewport whatever height the other sections leave.
func (m *Model) resizeLog() {
	if m.width == 0 || m.height == 0 {
		return
	}
	used := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderPanel()) +
		lipgloss.Height(m.renderStatusBar()) +
		lipgloss.Height(m.help.View(m.keys))
	frameH := logPanelStyle.GetVerticalFrameSize() + 1 // title line
	frameW := logPanelStyle.GetHorizontalFrameSize()

	m.logViewport.Width = max(m.width-frameW, 0)
	m.logViewport.Height = max(m.height-used-frameH, 0)
	m.logViewport.SetContent(prepareLogContent(m.logLines, m.logViewport.Width))
	m.logViewport.GotoBottom()
}
