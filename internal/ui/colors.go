package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme names the colors of a [Palette].
type Theme struct {
	Accent, Success, Failure, Warning, Muted lipgloss.Color
}

// SpotifyTheme matches the Spotify brand green.
var SpotifyTheme = Theme{
	Accent:  "#1DB954",
	Success: "#04B575",
	Failure: "#FF5F57",
	Warning: "#FFA500",
	Muted:   "#626262",
}

var styles = NewPalette(SpotifyTheme)

// Palette is the stylesheet every view renders with.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	box   lipgloss.Style
}

func NewPalette(t Theme) *Palette {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return &Palette{
		title: fg(t.Accent).Bold(true).MarginBottom(1),
		ok:    fg(t.Success).Bold(true),
		err:   fg(t.Failure).Bold(true),
		warn:  fg(t.Warning),
		help:  fg(t.Muted).Italic(true),
		box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Accent).Padding(0, 1),
	}
}
