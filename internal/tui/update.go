package tui

import (
	"context"
	"strings"
	"time"

	"gatewayctl/internal/notify"
	"gatewayctl/internal/panel"
	"gatewayctl/pkg/logging"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// deactivateTimeout bounds how long quitting waits for the gateway to stop.
const deactivateTimeout = 5 * time.Second

// Update routes every message to its handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resizeLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case notificationMsg:
		cmd := m.setStatus(msg.Level, msg.Text)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case panelChangedMsg:
		m.items = m.actions.Items()
		if m.cursor >= len(m.items) {
			m.cursor = len(m.items) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, waitForEvent(m.events)

	case progressMsg:
		if msg.Active {
			m.progress = msg.Title
		} else if m.progress == msg.Title {
			m.progress = ""
		}
		return m, waitForEvent(m.events)

	case confirmRequestMsg:
		if m.confirm != nil {
			// One question at a time; the newer one is declined.
			msg.Reply <- false
		} else {
			req := msg
			m.confirm = &req
		}
		return m, waitForEvent(m.events)

	case logEntryMsg:
		m.appendLog(msg.Entry.Format())
		return m, waitForLog(m.logs)

	case logChannelClosedMsg:
		m.logs = nil
		return m, nil

	case commandDoneMsg:
		if msg.Err != nil {
			logging.Debug(subsystem, "Command %s finished with error: %v", msg.CommandID, msg.Err)
		}
		return m, nil

	case clearStatusBarMsg:
		if msg.seq == m.statusSeq {
			m.statusMessage = ""
		}
		return m, nil

	case deactivatedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.answer(true)
		case key.Matches(msg, m.keys.No):
			m.answer(false)
		case msg.String() == "ctrl+c":
			m.answer(false)
			return m.quit()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.selected(); ok {
			return m, m.run(item.CommandID)
		}
	case key.Matches(msg, m.keys.Start):
		return m, m.run(panel.CommandStart)
	case key.Matches(msg, m.keys.Stop):
		return m, m.run(panel.CommandStop)
	case key.Matches(msg, m.keys.Open):
		return m, m.run(panel.CommandOpen)
	case key.Matches(msg, m.keys.Update):
		return m, m.run(panel.CommandUpdateBinary)
	case key.Matches(msg, m.keys.CopyLogs):
		cmd := m.copyLogs()
		return m, cmd
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeLog()
	default:
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// run executes a command off the UI loop. Confirmation prompts arrive back
// through the bridge while it runs.
func (m Model) run(id string) tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		return commandDoneMsg{CommandID: id, Err: actions.Execute(ctx, id)}
	}
}

func (m *Model) answer(ok bool) {
	m.confirm.Reply <- ok
	m.confirm = nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	actions := m.actions
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deactivateTimeout)
		defer cancel()
		if err := actions.Deactivate(ctx); err != nil {
			logging.Warn(subsystem, "Deactivate: %v", err)
		}
		return deactivatedMsg{}
	}
}

func (m *Model) copyLogs() tea.Cmd {
	if err := writeClipboard(strings.Join(m.logLines, "\n")); err != nil {
		return m.setStatus(notify.LevelError, "Failed to copy logs: "+err.Error())
	}
	return m.setStatus(notify.LevelInfo, "Logs copied to clipboard")
}

// setStatus shows text in the status bar and schedules its removal.
func (m *Model) setStatus(level notify.Level, text string) tea.Cmd {
	m.statusSeq++
	m.statusMessage = text
	m.statusLevel = level
	seq := m.statusSeq
	return tea.Tick(statusClearAfter, func(time.Time) tea.Msg {
		return clearStatusBarMsg{seq: seq}
	})
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	atBottom := m.logViewport.AtBottom()
	m.logViewport.SetContent(prepareLogContent(m.logLines, m.logViewport.Width))
	if atBottom {
		m.logViewport.GotoBottom()
	}
}
