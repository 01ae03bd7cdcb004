package tui

import (
	"context"

	"gatewayctl/internal/notify"
	"gatewayctl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// eventBuffer sizes the bridge channel so notifications from the supervisor
// goroutines rarely wait on the UI loop.
const eventBuffer = 100

// Bridge forwards notifications, progress and confirmation prompts from the
// command layer into the bubbletea program.
type Bridge struct {
	events chan tea.Msg
}

// NewBridge creates a bridge. Its events are consumed by the model.
func NewBridge() *Bridge {
	return &Bridge{events: make(chan tea.Msg, eventBuffer)}
}

// Events returns the channel the model listens on.
func (b *Bridge) Events() <-chan tea.Msg {
	return b.events
}

func (b *Bridge) Notify(level notify.Level, message string) {
	b.send(notificationMsg{Level: level, Text: message})
}

// Progress shows a spinner with title while task runs.
func (b *Bridge) Progress(title string, task func() error) error {
	b.send(progressMsg{Title: title, Active: true})
	defer b.send(progressMsg{Title: title, Active: false})
	return task()
}

// Confirm shows message in a yes/no overlay and blocks until it is answered.
func (b *Bridge) Confirm(ctx context.Context, message string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case b.events <- confirmRequestMsg{Message: message, Reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// PanelChanged tells the model to reload the panel items.
func (b *Bridge) PanelChanged() {
	b.send(panelChangedMsg{})
}

// send never blocks; the UI may already have quit.
func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
		logging.Warn(subsystem, "Dropped UI event %T", msg)
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}
