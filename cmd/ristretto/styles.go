package main

import "github.com/charmbracelet/lipgloss"

// Colors and styles for verify/disasm output, grounded on the pack's only
// lipgloss-using CLI (mabhi256-jdiag/utils/styles.go) but trimmed to the
// handful this command line actually renders: a title, a section header,
// a pass color, and an error color.
var (
	goodColor  = lipgloss.Color("#228B22")
	errorColor = lipgloss.Color("#CC3333")
	infoColor  = lipgloss.Color("#4682B4")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(infoColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	goodStyle   = lipgloss.NewStyle().Foreground(goodColor)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
)
