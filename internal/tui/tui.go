// Package tui is a terminal client for lantern games built on Bubble Tea.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/lantern/internal/game"
)

// Sender is the part of the websocket client the UI drives.
type Sender interface {
	StartGame(channel string, kind game.Kind) error
	SendAction(channel string, kind game.ActionKind, arg string) error
	ListGames() error
}

const (
	paneLog = iota
	paneInput
)

const helpText = "Type a button number to press it, with a value after it if it asks for one " +
	"(\"2 50\"). Commands: /start <counter|blackjack|poker|uno>, /list, /help, /quit."

type logEntry struct {
	text  string
	style lipgloss.Style
}

// Model is the Bubble Tea model for one channel.
type Model struct {
	channel string
	sender  Sender
	logger  *log.Logger

	logViewport viewport.Model
	actionInput textinput.Model
	gameLog     []logEntry
	focusedPane int

	// Channel state as last broadcast by the server.
	gameName string
	view     game.View
	ended    bool

	// The private prompt waiting for this player, if any.
	prompt *game.View

	width       int
	height      int
	initialized bool
	quitting    bool
}

// NewModel returns a model for channel that sends input through sender.
func NewModel(channel string, sender Sender, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "Button number, or /help"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	m := &Model{
		channel:     channel,
		sender:      sender,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		actionInput: ti,
		focusedPane: paneInput,
	}
	m.addLog(InfoStyle, "Watching channel %s. %s", channel, helpText)
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			if m.focusedPane == paneLog {
				m.focusedPane = paneInput
				m.actionInput.Focus()
			} else {
				m.focusedPane = paneLog
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == paneInput {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if cmd := m.handleInput(input); cmd != nil {
					return m, cmd
				}
			}
		case "up", "k":
			if m.focusedPane == paneLog {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == paneLog {
				m.logViewport.ScrollDown(1)
			}
		case "home", "g":
			if m.focusedPane == paneLog {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == paneLog {
				m.logViewport.GotoBottom()
			}
		}

	case StateMsg:
		if msg.Channel != m.channel {
			return m, nil
		}
		if m.gameName == "" || m.ended {
			m.addLog(InfoStyle, "A game of %s is running here.", msg.Game)
		}
		m.gameName = msg.Game
		m.view = msg.View
		m.ended = false

	case AnnouncementMsg:
		if msg.Channel == m.channel {
			m.addLog(GameLogStyle, "%s", msg.Message)
		}

	case NoticeMsg:
		if msg.Channel == m.channel {
			m.addLog(NoticeStyle, "%s", msg.Message)
		}

	case PromptMsg:
		if msg.Channel == m.channel {
			view := msg.View
			m.prompt = &view
		}

	case GameEndedMsg:
		if msg.Channel == m.channel {
			m.ended = true
			m.prompt = nil
			m.addLog(InfoStyle, "%s", game.MsgEnded)
		}

	case GameListMsg:
		if len(msg.Games) == 0 {
			m.addLog(InfoStyle, "No games are running.")
		}
		for _, g := range msg.Games {
			m.addLog(InfoStyle, "%s: %s, %d players, started %s",
				g.Channel, g.Game, g.Players, g.StartedAt.Format("15:04"))
		}

	case ErrorMsg:
		m.addLog(ErrorStyle, "%s", msg.Message)

	case DisconnectedMsg:
		m.addLog(ErrorStyle, "Disconnected from server.")
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.focusedPane == paneInput {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleInput runs one line typed by the player.
func (m *Model) handleInput(input string) tea.Cmd {
	if input == "" {
		return nil
	}

	fields := strings.Fields(input)
	switch cmd := strings.ToLower(fields[0]); {
	case cmd == "/quit" || cmd == "quit":
		m.quitting = true
		return tea.Quit
	case cmd == "/help":
		m.addLog(InfoStyle, helpText)
	case cmd == "/list":
		m.report(m.sender.ListGames())
	case cmd == "/start":
		if len(fields) < 2 {
			m.addLog(ErrorStyle, "Usage: /start <counter|blackjack|poker|uno>")
			return nil
		}
		kind, err := game.ParseKind(fields[1])
		if err != nil {
			m.addLog(ErrorStyle, "%s", err)
			return nil
		}
		m.report(m.sender.StartGame(m.channel, kind))
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			m.addLog(ErrorStyle, "Unknown command %q. %s", fields[0], helpText)
			return nil
		}
		m.press(n, strings.Join(fields[1:], " "))
	}
	return nil
}

// buttons numbers the channel's buttons first, then the private prompt's.
func (m *Model) buttons() []game.Button {
	var out []game.Button
	if !m.ended {
		out = append(out, m.view.Buttons...)
	}
	if m.prompt != nil {
		out = append(out, m.prompt.Buttons...)
	}
	return out
}

func (m *Model) press(n int, value string) {
	buttons := m.buttons()
	if n < 1 || n > len(buttons) {
		m.addLog(ErrorStyle, "There is no button %d.", n)
		return
	}
	b := buttons[n-1]
	if !b.Enabled {
		m.addLog(ErrorStyle, "%s is not available right now.", b.Label)
		return
	}

	arg := b.Arg
	if b.Input != nil {
		if value == "" {
			m.addLog(ErrorStyle, "%s needs a value: %s", b.Label, b.Input.Label)
			return
		}
		arg = value
	}

	if m.prompt != nil && n > len(buttons)-len(m.prompt.Buttons) {
		m.prompt = nil
	}
	m.logger.Debug("Pressing button", "label", b.Label, "kind", b.Kind, "arg", arg)
	m.report(m.sender.SendAction(m.channel, b.Kind, arg))
}

func (m *Model) report(err error) {
	if err != nil {
		m.addLog(ErrorStyle, "Failed to send: %s", err)
	}
}

func (m *Model) addLog(style lipgloss.Style, format string, args ...any) {
	m.gameLog = append(m.gameLog, logEntry{text: fmt.Sprintf(format, args...), style: style})

	m.logViewport.SetContent(m.renderLogPane())
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns the plain text of every log entry.
func (m *Model) Log() []string {
	out := make([]string, len(m.gameLog))
	for i, e := range m.gameLog {
		out[i] = e.text
	}
	return out
}

// Prompt returns the pending private prompt, if any.
func (m *Model) Prompt() *game.View {
	return m.prompt
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1))
	if m.focusedPane == paneInput {
		actionStyle = actionStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	actionPane := actionStyle.Render(actionContent)

	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 30)
	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(m.renderLogPane())
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(paneHeight)
	if m.focusedPane == paneLog {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderLogPane() string {
	lines := make([]string, len(m.gameLog))
	for i, e := range m.gameLog {
		lines[i] = e.style.Render(e.text)
	}
	return strings.Join(lines, "\n")
}

// renderSidebarPane shows the channel's menu.
func (m *Model) renderSidebarPane() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" #" + m.channel + " "))
	b.WriteString("\n\n")

	if m.gameName == "" {
		b.WriteString(InfoStyle.Render("No game yet. /start one."))
		return b.String()
	}

	b.WriteString(ViewStyle.Render(m.view.Text))
	b.WriteString("\n\n")
	if m.ended {
		return b.String()
	}
	for i, btn := range m.view.Buttons {
		b.WriteString(renderButton(i+1, btn))
		b.WriteByte('\n')
	}
	return b.String()
}

// renderActionPane shows the private prompt and the input line.
func (m *Model) renderActionPane() string {
	var b strings.Builder

	if m.prompt != nil {
		b.WriteString(PromptStyle.Render(m.prompt.Text))
		b.WriteByte('\n')
		offset := 0
		if !m.ended {
			offset = len(m.view.Buttons)
		}
		var labels []string
		for i, btn := range m.prompt.Buttons {
			labels = append(labels, renderButton(offset+i+1, btn))
		}
		b.WriteString(strings.Join(labels, "  "))
		b.WriteByte('\n')
	}

	b.WriteString(m.actionInput.View())
	b.WriteByte('\n')

	if m.focusedPane == paneLog {
		b.WriteString(InfoStyle.Render("Log focused: ↑↓ scroll, Home/End, Tab to input"))
	} else {
		b.WriteString(InfoStyle.Render("Tab to scroll log • Enter to submit • Ctrl+C to quit"))
	}
	return b.String()
}

func renderButton(n int, btn game.Button) string {
	label := fmt.Sprintf("[%d] %s", n, btn.Label)
	if btn.Input != nil {
		label += " <" + strings.ToLower(btn.Input.Label) + ">"
	}
	return buttonStyle(btn).Render(label)
}
