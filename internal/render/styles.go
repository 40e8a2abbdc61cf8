// Package render draws the operator console.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wagiedev/hitl-agent-client-go/internal/protocol"
)

// Colors
var (
	colorInfo      = lipgloss.Color("14")
	colorWarn      = lipgloss.Color("11")
	colorError     = lipgloss.Color("9")
	colorSuccess   = lipgloss.Color("10")
	colorHighlight = lipgloss.Color("13")
	colorDim       = lipgloss.Color("242")
	colorIdle      = lipgloss.Color("12")
)

// Styles
var (
	infoStyle = lipgloss.NewStyle().
			Foreground(colorInfo)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarn)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// panel draws body in a rounded box with a colored title line.
func panel(title, body string, color lipgloss.Color) string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(color).Render(title)

	content := heading
	if body = strings.TrimRight(body, "\n"); body != "" {
		content += "\n" + body
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(content)
}

// statusColor picks the panel color for a session status.
func statusColor(status protocol.SessionStatus) lipgloss.Color {
	switch status {
	case protocol.StatusCompleted:
		return colorSuccess
	case protocol.StatusError:
		return colorError
	case protocol.StatusInterrupted, protocol.StatusRunning:
		return colorWarn
	case protocol.StatusIdle:
		return colorIdle
	default:
		return colorInfo
	}
}
