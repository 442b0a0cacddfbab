package ui

import "github.com/charmbracelet/lipgloss"

var (
	primary   = lipgloss.Color("39")
	secondary = lipgloss.Color("240")
	accent    = lipgloss.Color("86")
	danger    = lipgloss.Color("196")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("87"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("248"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondary).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.
				BorderForeground(primary)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("153"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	captionStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("213"))

	descStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	successStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(danger)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109"))
)
