package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/lantern/cmd/lantern/shared"
	"github.com/lox/lantern/internal/client"
	"github.com/lox/lantern/internal/tui"
)

// ClientCmd plays in one channel from the terminal.
type ClientCmd struct {
	Config   string `short:"c" default:"lantern-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Player   string `short:"p" help:"Player ID (overrides config, defaults to $USER)"`
	Name     string `short:"n" help:"Display name (overrides config)"`
	Channel  string `short:"C" help:"Channel to watch (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
	NoColor  bool   `help:"Disable colors"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Server != "" {
		cfg.ServerURL = strings.TrimSpace(c.Server)
	}
	if c.Player != "" {
		cfg.PlayerID = strings.TrimSpace(c.Player)
	}
	if c.Name != "" {
		cfg.PlayerName = strings.TrimSpace(c.Name)
	}
	if c.Channel != "" {
		cfg.Channel = strings.TrimSpace(c.Channel)
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.LogFile = c.LogFile
	}
	if cfg.PlayerID == "" {
		cfg.PlayerID = os.Getenv("USER")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	logger, err := shared.SetupLoggerTo(logFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Info("Starting client",
		"server", cfg.ServerURL,
		"player", cfg.PlayerID,
		"channel", cfg.Channel)

	wsClient := client.NewClient(cfg.ServerURL, logger)
	model := tui.NewModel(cfg.Channel, wsClient, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	tui.Bridge(wsClient, logger, program.Send)

	if err := wsClient.Connect(); err != nil {
		return err
	}
	defer func() { _ = wsClient.Disconnect() }()

	if err := wsClient.Auth(cfg.PlayerID, cfg.DisplayName(), cfg.Token); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if err := wsClient.Subscribe(cfg.Channel); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	_, err = program.Run()
	return err
}
