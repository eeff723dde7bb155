package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorGreen   = lipgloss.Color("#04B575")
	colorRed     = lipgloss.Color("#FF4444")
	colorYellow  = lipgloss.Color("#FFCC00")
	colorGray    = lipgloss.Color("#888888")
	colorDim     = lipgloss.Color("#626262")
	colorWhite   = lipgloss.Color("#FAFAFA")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Background(colorPrimary).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().Foreground(colorGray)

	recordingStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)

	activeStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)

	errorStyle = lipgloss.NewStyle().Foreground(colorRed)

	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)

	transcriptStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(colorDim)
)
