package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#3DDC84"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorText    = lipgloss.AdaptiveColor{Light: "#3D3D3D", Dark: "#ABABAB"}
	colorError   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#B7791F", Dark: "#F6C343"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#DBDBDB", Dark: "#383838"}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(colorText)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarn)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(18)

	promptBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)
