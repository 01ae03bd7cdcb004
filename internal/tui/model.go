package tui

import (
	"context"

	"gatewayctl/internal/notify"
	"gatewayctl/internal/panel"
	"gatewayctl/pkg/logging"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const subsystem = "TUI"

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Actions is what the panel needs from the command layer.
type Actions interface {
	Items() []panel.Item
	Execute(ctx context.Context, id string) error
	Deactivate(ctx context.Context) error
}

// Model is the bubbletea model of the gateway panel.
type Model struct {
	ctx     context.Context
	actions Actions
	keys    KeyMap
	help    help.Model

	items  []panel.Item
	cursor int

	width  int
	height int

	logLines    []string
	logViewport viewport.Model
	logs        <-chan logging.LogEntry
	events      <-chan tea.Msg

	spinner  spinner.Model
	progress string

	statusMessage string
	statusLevel   notify.Level
	statusSeq     int

	confirm *confirmRequestMsg

	quitting bool
}

// NewModel builds the panel model. logs may be nil when logging is not routed
// to the UI.
func NewModel(ctx context.Context, actions Actions, events <-chan tea.Msg, logs <-chan logging.LogEntry) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:         ctx,
		actions:     actions,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		items:       actions.Items(),
		logViewport: viewport.New(0, 0),
		logs:        logs,
		events:      events,
		spinner:     sp,
	}
}

// Init starts the listeners and the spinner.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	if m.logs != nil {
		cmds = append(cmds, waitForLog(m.logs))
	}
	return tea.Batch(cmds...)
}

// Items returns the entries currently shown.
func (m Model) Items() []panel.Item { return m.items }

// Cursor returns the index of the selected entry.
func (m Model) Cursor() int { return m.cursor }

// StatusMessage returns the status bar text.
func (m Model) StatusMessage() string { return m.statusMessage }

// Confirming reports whether a yes/no question is open.
func (m Model) Confirming() bool { return m.confirm != nil }

// LogLines returns the collected log lines.
func (m Model) LogLines() []string { return m.logLines }

func (m Model) selected() (panel.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return panel.Item{}, false
	}
	return m.items[m.cursor], true
}

func waitForLog(logs <-chan logging.LogEntry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-logs
		if !ok {
			return logChannelClosedMsg{}
		}
		return logEntryMsg{Entry: entry}
	}
}
