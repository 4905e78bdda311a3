package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/downlinkhq/downlink/internal/model"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("39")  // Blue
	colorSecondary = lipgloss.Color("241") // Gray
	colorSuccess   = lipgloss.Color("42")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
	colorError     = lipgloss.Color("196") // Red
	colorMuted     = lipgloss.Color("240") // Dark gray
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			MarginBottom(1)

	statusDone = lipgloss.NewStyle().
			Foreground(colorSuccess).
			SetString("✓")

	statusActive = lipgloss.NewStyle().
			Foreground(colorWarning).
			SetString("●")

	statusFailed = lipgloss.NewStyle().
			Foreground(colorError).
			SetString("✗")

	statusWaiting = lipgloss.NewStyle().
			Foreground(colorMuted).
			SetString("○")

	statusPaused = lipgloss.NewStyle().
			Foreground(colorSecondary).
			SetString("◫")

	selectedItemStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	mutedItemStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	barFull = lipgloss.NewStyle().
		Foreground(colorSuccess).
		SetString("█")

	barEmpty = lipgloss.NewStyle().
			Foreground(colorMuted).
			SetString("░")

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				MarginTop(1).
				MarginBottom(1)
)

// StatusIcon returns the icon for a download status.
func StatusIcon(status model.Status) string {
	switch status {
	case model.StatusDone:
		return statusDone.String()
	case model.StatusFailed:
		return statusFailed.String()
	case model.StatusStopped:
		return statusPaused.String()
	case model.StatusCanceled:
		return statusWaiting.String()
	case model.StatusQueued:
		return statusWaiting.String()
	default:
		return statusActive.String()
	}
}

// RenderBar renders a percent bar of the given width. A negative percent
// means unknown and renders fully empty.
func RenderBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent * float64(width) / 100)

	bar := ""
	for i := 0; i < filled; i++ {
		bar += barFull.String()
	}
	for i := filled; i < width; i++ {
		bar += barEmpty.String()
	}
	return bar
}

// FormatBytes renders a byte count for humans. Negative means unknown.
func FormatBytes(n int64) string {
	if n < 0 {
		return "--"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGT"[exp])
}

// FormatSpeed renders bytes per second. Negative means unknown.
func FormatSpeed(bps float64) string {
	if bps < 0 {
		return "--"
	}
	return FormatBytes(int64(bps)) + "/s"
}

// FormatETA renders seconds as mm:ss or hh:mm:ss. Negative means unknown.
func FormatETA(seconds int64) string {
	if seconds < 0 {
		return "--"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatDuration renders a media duration in seconds, 0 when unknown.
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "--"
	}
	return FormatETA(seconds)
}
