// Package panel holds the action list shown to the user. The list switches
// between two fixed sets depending on whether the gateway is running.
package panel

import "sync"

// Command identifiers shared by the panel, the TUI and the MCP tools.
const (
	CommandStart        = "drizzleGateway.start"
	CommandStop         = "drizzleGateway.stop"
	CommandOpen         = "drizzleGateway.open"
	CommandUpdateBinary = "drizzleGateway.updateBinary"
)

// Item is one clickable entry in the panel.
type Item struct {
	Label     string
	Icon      string
	Tooltip   string
	CommandID string
}

var (
	stoppedItems = []Item{
		{Label: "Start Gateway", Icon: "play", Tooltip: "Start the Drizzle Gateway server", CommandID: CommandStart},
		{Label: "Update Binary", Icon: "cloud-download", Tooltip: "Redownload the latest binary", CommandID: CommandUpdateBinary},
	}
	runningItems = []Item{
		{Label: "Stop Gateway", Icon: "stop", Tooltip: "Stop the Drizzle Gateway server", CommandID: CommandStop},
		{Label: "Open Studio", Icon: "browser", Tooltip: "Open Drizzle Studio in tab", CommandID: CommandOpen},
	}
)

// Controller tracks the running flag and notifies listeners when it changes.
type Controller struct {
	mu        sync.RWMutex
	running   bool
	listeners []func()
}

// New returns a controller in the stopped state.
func New() *Controller {
	return &Controller{}
}

// Refresh records the running flag and fires the change listeners. Listeners
// run even when the flag is unchanged so the host always redraws.
func (c *Controller) Refresh(running bool) {
	c.mu.Lock()
	c.running = running
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Running reports the last flag passed to Refresh.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Items returns the entries for the current state.
func (c *Controller) Items() []Item {
	return ItemsFor(c.Running())
}

// OnChange registers fn to run after every Refresh.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// ItemsFor returns a copy of the item set for the given state.
func ItemsFor(running bool) []Item {
	if running {
		return append([]Item(nil), runningItems...)
	}
	return append([]Item(nil), stoppedItems...)
}

// AllCommands lists every command the panel can issue.
func AllCommands() []string {
	return []string{CommandStart, CommandStop, CommandOpen, CommandUpdateBinary}
}
