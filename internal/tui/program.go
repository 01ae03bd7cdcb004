package tui

import (
	"context"

	"gatewayctl/internal/commands"
	"gatewayctl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the panel for app until the user quits. bridge must be the
// notifier and confirmer app was built with.
func Run(ctx context.Context, app *commands.App, bridge *Bridge, logs <-chan logging.LogEntry) error {
	app.Panel.OnChange(bridge.PanelChanged)

	m := NewModel(ctx, app, bridge.Events(), logs)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
