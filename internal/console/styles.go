package console

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#FF79C6")
	gold   = lipgloss.Color("#FFC107")
	muted  = lipgloss.Color("#8A8F98")
	danger = lipgloss.Color("#E53935")
)

type styles struct {
	banner  lipgloss.Style
	title   lipgloss.Style
	heading lipgloss.Style
	number  lipgloss.Style
	prompt  lipgloss.Style
	muted   lipgloss.Style
	err     lipgloss.Style
}

func newStyles(width int) styles {
	return styles{
		banner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2).
			MaxWidth(width),
		title:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		heading: lipgloss.NewStyle().Bold(true).Foreground(gold),
		number:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		prompt:  lipgloss.NewStyle().Foreground(accent),
		muted:   lipgloss.NewStyle().Foreground(muted),
		err:     lipgloss.NewStyle().Bold(true).Foreground(danger),
	}
}
