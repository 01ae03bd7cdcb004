package tui

import (
	"gatewayctl/internal/notify"
	"gatewayctl/pkg/logging"
)

// notificationMsg carries a notify.Notifier message into the UI.
type notificationMsg struct {
	Level notify.Level
	Text  string
}

// panelChangedMsg is sent after the panel controller switched item sets.
type panelChangedMsg struct{}

// progressMsg marks the start or end of a long running task.
type progressMsg struct {
	Title  string
	Active bool
}

// confirmRequestMsg asks the user a yes/no question. The answer goes to Reply.
type confirmRequestMsg struct {
	Message string
	Reply   chan<- bool
}

// logEntryMsg wraps a log record from pkg/logging.
type logEntryMsg struct {
	Entry logging.LogEntry
}

// logChannelClosedMsg is sent once the logging channel is closed.
type logChannelClosedMsg struct{}

// commandDoneMsg reports the completion of a panel command.
type commandDoneMsg struct {
	CommandID string
	Err       error
}

// deactivatedMsg is sent after the gateway was stopped on quit.
type deactivatedMsg struct{}

// clearStatusBarMsg clears the status bar unless a newer message replaced it.
type clearStatusBarMsg struct {
	seq int
}
