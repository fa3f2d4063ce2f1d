package reporter

import "github.com/charmbracelet/lipgloss"

// Theme colors
var (
	Primary = lipgloss.Color("#7C3AED")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Danger  = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
	Border  = lipgloss.Color("#4B5563")
)

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true).Foreground(Primary)
	okStyle     = cellStyle.Foreground(Success)
	warnStyle   = cellStyle.Bold(true).Foreground(Warning)
	errorStyle  = cellStyle.Bold(true).Foreground(Danger)
	footerStyle = lipgloss.NewStyle().Foreground(Muted)
)
