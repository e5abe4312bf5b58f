// Package cli provides the terminal front end of villar: lipgloss styles,
// prompts, tables and money formatting.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	PrimaryColor = lipgloss.Color("#F4A261") // piggy-bank gold
	IncomeColor  = lipgloss.Color("#2A9D8F")
	ExpenseColor = lipgloss.Color("#E76F51")
	WarningColor = lipgloss.Color("#E9C46A")
	InfoColor    = lipgloss.Color("#8ECAE6")
	SubtleColor  = lipgloss.Color("#6C757D")
	BorderColor  = lipgloss.Color("#3D405B")
)

// Text styles.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	SubtitleStyle = lipgloss.NewStyle().Foreground(SubtleColor).MarginBottom(1)
	SubtleStyle   = lipgloss.NewStyle().Foreground(SubtleColor)
	SuccessStyle  = lipgloss.NewStyle().Foreground(IncomeColor)
	ErrorStyle    = lipgloss.NewStyle().Foreground(ExpenseColor)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	PromptStyle   = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)

	// BoxStyle frames participant and character cards.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	// TableHeaderStyle underlines the header row of every table.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(BorderColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	WalletIcon  = "💶"
	BankIcon    = "🏦"
	CartIcon    = "🛒"
)

// AmountStyle colors a signed amount: income green, spending red.
func AmountStyle(negative bool) lipgloss.Style {
	if negative {
		return ErrorStyle
	}
	return SuccessStyle
}

func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatHeading renders a section title led by icon.
func FormatHeading(icon, title string) string {
	return TitleStyle.Render(icon + " " + title)
}

// FormatTitle renders a section title with the wallet icon.
func FormatTitle(title string) string {
	return FormatHeading(WalletIcon, title)
}

// FormatMenuTitle renders a menu header without an icon.
func FormatMenuTitle(title string) string {
	return TitleStyle.Render(title)
}

func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox renders content under title in a rounded box.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.UnsetMargins().Render(title),
		content,
	))
}
