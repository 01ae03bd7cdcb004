// Package notify carries user-visible notifications from the gateway
// components to whichever host surface is active (TUI, CLI or MCP).
package notify

import (
	"fmt"
	"sync"

	"gatewayctl/pkg/logging"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows messages to the user.
type Notifier interface {
	Notify(level Level, message string)
	// Progress runs task behind a progress indicator the user cannot cancel.
	Progress(title string, task func() error) error
}

// Infof sends an informational notification.
func Infof(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf sends a warning notification.
func Warnf(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf sends an error notification.
func Errorf(n Notifier, format string, args ...interface{}) {
	n.Notify(LevelError, fmt.Sprintf(format, args...))
}

// LogNotifier turns notifications into log records. Used by the CLI commands.
type LogNotifier struct {
	Subsystem string
}

func (l LogNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		logging.Error(l.Subsystem, nil, "%s", message)
	case LevelWarn:
		logging.Warn(l.Subsystem, "%s", message)
	default:
		logging.Info(l.Subsystem, "%s", message)
	}
}

func (l LogNotifier) Progress(title string, task func() error) error {
	logging.Info(l.Subsystem, "%s", title)
	return task()
}

// Tee sends every notification to all of its notifiers.
type Tee []Notifier

func (t Tee) Notify(level Level, message string) {
	for _, n := range t {
		n.Notify(level, message)
	}
}

// Progress nests the progress indicators of every notifier around task.
func (t Tee) Progress(title string, task func() error) error {
	if len(t) == 0 {
		return task()
	}
	return t[0].Progress(title, func() error {
		return t[1:].Progress(title, task)
	})
}

// Message is a notification captured by Recorder.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu             sync.Mutex
	messages       []Message
	progressTitles []string
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: message})
}

func (r *Recorder) Progress(title string, task func() error) error {
	r.mu.Lock()
	r.progressTitles = append(r.progressTitles, title)
	r.mu.Unlock()
	return task()
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// ProgressTitles returns the titles of every progress indicator shown.
func (r *Recorder) ProgressTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.progressTitles...)
}

// Count returns how many notifications with the given level and text were recorded.
func (r *Recorder) Count(level Level, text string) int {
	n := 0
	for _, m := range r.Messages() {
		if m.Level == level && m.Text == text {
			n++
		}
	}
	return n
}
