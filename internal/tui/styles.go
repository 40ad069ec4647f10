package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorWhite = lipgloss.Color("15")
	ColorGray  = lipgloss.Color("240")
	ColorDim   = lipgloss.Color("245")
	ColorBlue  = lipgloss.Color("39")
	ColorGold  = lipgloss.Color("220")
	ColorGreen = lipgloss.Color("42")
	ColorRed   = lipgloss.Color("196")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.BorderForeground(ColorBlue)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGold)

	chartTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().Foreground(ColorGray)

	cellStyle = lipgloss.NewStyle().Foreground(ColorDim)

	activeCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorBlue)

	seenMarkStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	locationStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorGold)

	descriptionStyle = lipgloss.NewStyle().Foreground(ColorDim)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorGold).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().Foreground(ColorBlue)

	errorStyle = lipgloss.NewStyle().Foreground(ColorRed)

	indicatorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)
)
