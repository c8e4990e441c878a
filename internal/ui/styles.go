package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorBase    = lipgloss.Color("#1B2129")
	ColorSurface = lipgloss.Color("#26303B")
	ColorMuted   = lipgloss.Color("#7D8A99")
	ColorText    = lipgloss.Color("#D8DEE6")
	ColorAccent  = lipgloss.Color("#6FB3C8")
	ColorGreen   = lipgloss.Color("#a6e3a1")
	ColorRed     = lipgloss.Color("#f38ba8")
	ColorYellow  = lipgloss.Color("#f9e2af")
	ColorOrange  = lipgloss.Color("#fab387")
)

// Chrome shared by every screen.
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ColorMuted)

	BreadcrumbStyle       = lipgloss.NewStyle().Foreground(ColorMuted)
	BreadcrumbActiveStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(ColorMuted)

	HelpKeyStyle  = lipgloss.NewStyle().Foreground(ColorAccent)
	HelpDescStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Padding(0, 1)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)
)

// Trips table.
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Padding(0, 1).
				Background(ColorSurface)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorBase).
				Background(ColorAccent)

	NormalRowStyle = lipgloss.NewStyle().Foreground(ColorText)

	EmptyStateStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true).
			Padding(2, 4)
)

// Itinerary and map pane.
var (
	DayHeadingStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	EmptyDayStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	// DraggingRowStyle marks the stop that is picked up.
	DraggingRowStyle = lipgloss.NewStyle().
				Foreground(ColorBase).
				Background(ColorOrange).
				Bold(true)

	PanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ColorMuted).
			Padding(1, 2)
)

// Forms and dialogs.
var (
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	BorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)

	ActiveBorderStyle = BorderStyle.
				BorderForeground(ColorAccent)

	ModalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorYellow).
			Padding(1, 2)
)
