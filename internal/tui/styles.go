package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	// maxLogLines bounds the log kept in memory for the viewport and clipboard.
	maxLogLines = 1000
	// statusClearAfter is how long a notification stays in the status bar.
	statusClearAfter = 5 * time.Second
	// minLogHeight is the smallest log viewport worth rendering.
	minLogHeight = 3
)

// Icons for the panel items, keyed by item icon name.
var itemIcons = map[string]string{
	"play":           "▶",
	"stop":           "⏹",
	"cloud-download": "⇩",
	"browser":        "◈",
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#303030"}).
			Padding(0, 2)

	stateRunningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#006600", Dark: "#8AE234"})
	stateStoppedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#909090"})
	stateStartingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#A07000", Dark: "#FFD066"})

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#0000CC", Dark: "#58A6FF"}).
			Padding(0, 1)

	itemStyle         = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#E0E0E0"})
	selectedItemStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#0000CC", Dark: "#58A6FF"})
	tooltipStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#909090"})

	logPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#A0A0A0"})
	logTitleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"})

	logInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#E0E0E0"})
	logWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#A07000", Dark: "#FFD066"}).Bold(true)
	logErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B30000", Dark: "#FF6B6B"}).Bold(true)
	logDebugStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#909090"}).Italic(true)
	// Gateway stderr lines.
	logGatewayStderrStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#7A3E9D", Dark: "#C792EA"})

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#A07000", Dark: "#FFD066"}).
			Padding(1, 2)

	statusBarBaseStyle = lipgloss.NewStyle().Padding(0, 1)
	statusInfoStyle    = statusBarBaseStyle.Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).Background(lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#005FAF"})
	statusWarnStyle    = statusBarBaseStyle.Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).Background(lipgloss.AdaptiveColor{Light: "#FFD066", Dark: "#FFD066"})
	statusErrorStyle   = statusBarBaseStyle.Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).Background(lipgloss.AdaptiveColor{Light: "#B30000", Dark: "#B30000"})
	statusIdleStyle    = statusBarBaseStyle.Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#909090"})
)
