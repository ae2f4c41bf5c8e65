package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the terminal clock
type Styles struct {
	Header    lipgloss.Style
	Face      lipgloss.Style
	Tick      lipgloss.Style
	MajorTick lipgloss.Style
	Marker    lipgloss.Style
	HourHand  lipgloss.Style
	MinHand   lipgloss.Style
	SecHand   lipgloss.Style
	Pivot     lipgloss.Style
	Pill      lipgloss.Style
	Label     lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the black-on-white look of the clock page
func DefaultStyles() Styles {
	muted := lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	ink := lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}

	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(muted),
		Face:      lipgloss.NewStyle(),
		Tick:      lipgloss.NewStyle().Foreground(muted),
		MajorTick: lipgloss.NewStyle().Foreground(ink).Bold(true),
		Marker:    lipgloss.NewStyle().Foreground(ink).Bold(true),
		HourHand:  lipgloss.NewStyle().Foreground(ink).Bold(true),
		MinHand:   lipgloss.NewStyle().Foreground(ink),
		SecHand:   lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")),
		Pivot:     lipgloss.NewStyle().Foreground(ink).Bold(true),
		Pill: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#b3b3b3")).
			Padding(0, 1),
		Label: lipgloss.NewStyle().Foreground(muted),
		Help:  lipgloss.NewStyle().Faint(true),
	}
}
