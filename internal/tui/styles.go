package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/lantern/internal/game"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true)

	GameLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	ViewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4"))

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	DisabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Strikethrough(true)
)

// buttonStyles maps a button's style hint onto the terminal palette.
var buttonStyles = map[game.ButtonStyle]lipgloss.Style{
	game.StylePrimary:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7D9CF4")).Bold(true),
	game.StyleSecondary: lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
	game.StyleSuccess:   lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
	game.StyleDanger:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
}

func buttonStyle(b game.Button) lipgloss.Style {
	if !b.Enabled {
		return DisabledStyle
	}
	if s, ok := buttonStyles[b.Style]; ok {
		return s
	}
	return GameLogStyle
}
