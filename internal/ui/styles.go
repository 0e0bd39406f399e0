package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = "74"  // blue
	colorCmd    = "250" // light gray
	colorMuted  = "245" // medium gray
	colorError  = "203" // red
)

var renderer = lipgloss.NewRenderer(os.Stdout)

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return renderer.NewStyle().Foreground(lipgloss.Color(colorAccent)).Render(s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return renderer.NewStyle().Foreground(lipgloss.Color(colorMuted)).Render(s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return renderer.NewStyle().Foreground(lipgloss.Color(colorCmd)).Render(s)
}

// RenderError returns s in the error (red) color.
func RenderError(s string) string {
	return renderer.NewStyle().Foreground(lipgloss.Color(colorError)).Render(s)
}

// RenderBold returns s in bold.
func RenderBold(s string) string {
	return renderer.NewStyle().Bold(true).Render(s)
}

// Swatch returns a colored dot for a hex color such as "#f97316".
func Swatch(hex string) string {
	return renderer.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
}

// Card draws s inside a rounded border.
func Card(s string) string {
	return renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorMuted)).
		Padding(0, 1).
		Render(s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	renderer.SetColorProfile(termenv.Ascii)
}
