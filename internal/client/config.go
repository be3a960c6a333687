package client

import (
	"fmt"
	"net/url"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the terminal client's configuration file.
type Config struct {
	ServerURL  string `hcl:"server_url,optional"`
	PlayerID   string `hcl:"player_id,optional"`
	PlayerName string `hcl:"player_name,optional"`
	Token      string `hcl:"token,optional"`
	Channel    string `hcl:"channel,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	LogFile    string `hcl:"log_file,optional"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8080",
		Channel:   "lobby",
		LogLevel:  "warn",
		LogFile:   "lantern-client.log",
	}
}

// LoadConfig reads an HCL config file. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.ServerURL == "" {
		config.ServerURL = defaults.ServerURL
	}
	if config.Channel == "" {
		config.Channel = defaults.Channel
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.LogFile == "" {
		config.LogFile = defaults.LogFile
	}

	return &config, nil
}

// Validate checks the configuration once flags have been applied.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	if c.PlayerID == "" && c.Token == "" {
		return fmt.Errorf("player ID or token is required")
	}
	if c.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// DisplayName returns the player name, falling back to the ID.
func (c *Config) DisplayName() string {
	if c.PlayerName != "" {
		return c.PlayerName
	}
	return c.PlayerID
}
