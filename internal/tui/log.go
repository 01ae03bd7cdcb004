package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// prepareLogContent truncates long lines to avoid viewport wrapping and applies
// color styles based on log level markers.
func prepareLogContent(lines []string, maxWidth int) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if maxWidth > 0 && runewidth.StringWidth(line) > maxWidth {
			line = runewidth.Truncate(line, maxWidth-1, "") + "…"
		}
		out[i] = styleLogLine(line)
	}
	return strings.Join(out, "\n")
}

// styleLogLine picks a style from the markers in l, most specific first.
func styleLogLine(l string) string {
	switch {
	case strings.Contains(l, "[ERROR]"):
		return logErrorStyle.Render(l)
	case strings.Contains(l, "[WARN]"):
		return logWarnStyle.Render(l)
	case strings.Contains(l, "[DEBUG]"):
		return logDebugStyle.Render(l)
	case strings.Contains(l, "[Gateway] [Log]: "):
		return logGatewayStderrStyle.Render(l)
	default:
		return logInfoStyle.Render(l)
	}
}
