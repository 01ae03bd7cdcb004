// Package tui implements the interactive gateway panel with bubbletea.
//
// The panel lists the actions available in the current state. Commands run
// off the UI loop; their notifications, progress indicators and yes/no
// questions come back through a Bridge. Log records from pkg/logging are
// shown in a scrollable viewport and can be copied to the clipboard.
package tui
