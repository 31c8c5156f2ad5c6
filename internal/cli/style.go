package cli

import "github.com/charmbracelet/lipgloss"

var (
	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// runningStyle for live session status
	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// exitedStyle for dead session status
	exitedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// promptStyle for REPL prompt text in attached output
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	// errStyle for stderr-classified output lines
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)
