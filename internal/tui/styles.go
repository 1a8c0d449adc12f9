package tui

import "github.com/charmbracelet/lipgloss"

// Phoque Color Palette
var (
	ColorSea   = lipgloss.Color("#A8D8EA") // Accents and headers
	ColorDeep  = lipgloss.Color("#596E79") // Borders and secondary text
	ColorText  = lipgloss.Color("#E0E0E0") // Primary text
	ColorAlert = lipgloss.Color("#FF6B6B") // Deny and reject
	ColorGood  = lipgloss.Color("#4ECDC4") // Allow
	ColorWarn  = lipgloss.Color("#FFE66D") // Reject
	ColorMuted = lipgloss.Color("#6c757d") // Inactive rules
)

// Styles
var (
	StyleTableBorder = lipgloss.NewStyle().Foreground(ColorDeep)

	StyleTableHeader = lipgloss.NewStyle().
				Foreground(ColorSea).
				Bold(true).
				Padding(0, 1)

	StyleTableRow = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	StyleTableRowInactive = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Faint(true).
				Padding(0, 1)

	StyleActionAllow  = lipgloss.NewStyle().Foreground(ColorGood).Bold(true).Padding(0, 1)
	StyleActionDeny   = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true).Padding(0, 1)
	StyleActionReject = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true).Padding(0, 1)
)
