package server

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/lantern/internal/auth"
	"github.com/lox/lantern/internal/game/blackjack"
	"github.com/lox/lantern/internal/game/holdem"
	"github.com/lox/lantern/internal/game/uno"
	"github.com/lox/lantern/internal/session"
)

// Config is the complete lantern.hcl file.
type Config struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Discord *DiscordSettings `hcl:"discord,block"`
	Games   *GamesConfig     `hcl:"games,block"`
}

type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	// AuthURL enables token validation against an external service.
	AuthURL    string `hcl:"auth_url,optional"`
	AuthSecret string `hcl:"auth_secret,optional"`
}

// DiscordSettings configures the bot. An empty token disables it.
type DiscordSettings struct {
	Token         string `hcl:"token,optional"`
	ApplicationID string `hcl:"application_id,optional"`
	// GuildID scopes slash commands to one server; empty registers them
	// globally.
	GuildID string `hcl:"guild_id,optional"`
}

type GamesConfig struct {
	PromptTimeout string         `hcl:"prompt_timeout,optional"`
	Blackjack     *TableConfig   `hcl:"blackjack,block"`
	Poker         *TableConfig   `hcl:"poker,block"`
	Uno           *UnoConfig     `hcl:"uno,block"`
	Counter       *CounterConfig `hcl:"counter,block"`
}

type TableConfig struct {
	StartingChips int `hcl:"starting_chips,optional"`
	MaxPlayers    int `hcl:"max_players,optional"`
}

type UnoConfig struct {
	HandSize   int `hcl:"hand_size,optional"`
	MaxPlayers int `hcl:"max_players,optional"`
}

// CounterConfig has no settings; the block only documents that the game is
// available.
type CounterConfig struct{}

const (
	defaultAddress  = "localhost"
	defaultPort     = 8080
	defaultLogLevel = "info"
)

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
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

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}

	if c.Discord == nil {
		c.Discord = &DiscordSettings{}
	}

	if c.Games == nil {
		c.Games = &GamesConfig{}
	}
	g := c.Games
	if g.PromptTimeout == "" {
		g.PromptTimeout = session.DefaultPromptTimeout.String()
	}
	if g.Blackjack == nil {
		g.Blackjack = &TableConfig{}
	}
	if g.Blackjack.StartingChips == 0 {
		g.Blackjack.StartingChips = blackjack.DefaultStartingChips
	}
	if g.Blackjack.MaxPlayers == 0 {
		g.Blackjack.MaxPlayers = blackjack.DefaultMaxPlayers
	}
	if g.Poker == nil {
		g.Poker = &TableConfig{}
	}
	if g.Poker.StartingChips == 0 {
		g.Poker.StartingChips = holdem.DefaultStartingChips
	}
	if g.Poker.MaxPlayers == 0 {
		g.Poker.MaxPlayers = holdem.DefaultMaxPlayers
	}
	if g.Uno == nil {
		g.Uno = &UnoConfig{}
	}
	if g.Uno.HandSize == 0 {
		g.Uno.HandSize = uno.DefaultHandSize
	}
	if g.Uno.MaxPlayers == 0 {
		g.Uno.MaxPlayers = uno.DefaultMaxPlayers
	}
	if g.Counter == nil {
		g.Counter = &CounterConfig{}
	}
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if c.Server.AuthURL != "" {
		u, err := url.Parse(c.Server.AuthURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid auth_url %q", c.Server.AuthURL)
		}
	}
	if c.Discord.Token != "" && c.Discord.ApplicationID == "" {
		return fmt.Errorf("discord: application_id is required when a token is set")
	}

	timeout, err := time.ParseDuration(c.Games.PromptTimeout)
	if err != nil {
		return fmt.Errorf("games: invalid prompt_timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("games: prompt_timeout must be positive")
	}

	tables := []struct {
		name       string
		table      *TableConfig
		minPlayers int
		maxPlayers int
	}{
		{"blackjack", c.Games.Blackjack, 1, 25},
		{"poker", c.Games.Poker, 2, holdem.MaxSeats},
	}
	for _, t := range tables {
		if t.table.StartingChips <= 0 {
			return fmt.Errorf("%s: starting chips must be positive", t.name)
		}
		if t.table.MaxPlayers < t.minPlayers || t.table.MaxPlayers > t.maxPlayers {
			return fmt.Errorf("%s: max players must be between %d and %d", t.name, t.minPlayers, t.maxPlayers)
		}
	}

	u := c.Games.Uno
	if u.MaxPlayers < 2 || u.MaxPlayers > 10 {
		return fmt.Errorf("uno: max players must be between 2 and 10")
	}
	if u.HandSize < 1 || u.HandSize*u.MaxPlayers > uno.MaxDealt {
		return fmt.Errorf("uno: hand size %d does not fit %d players", u.HandSize, u.MaxPlayers)
	}

	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Validator returns the token validator for websocket logins.
func (c *Config) Validator() auth.Validator {
	if c.Server.AuthURL == "" {
		return auth.NewNoopValidator()
	}
	return auth.NewHTTPValidator(c.Server.AuthURL, c.Server.AuthSecret)
}

// Rules converts the games block into session rules. Call Validate first.
func (c *Config) Rules() session.Rules {
	rules := session.DefaultRules()
	if d, err := time.ParseDuration(c.Games.PromptTimeout); err == nil {
		rules.PromptTimeout = d
	}
	rules.Blackjack = session.TableRules{
		StartingChips: c.Games.Blackjack.StartingChips,
		MaxPlayers:    c.Games.Blackjack.MaxPlayers,
	}
	rules.Poker = session.TableRules{
		StartingChips: c.Games.Poker.StartingChips,
		MaxPlayers:    c.Games.Poker.MaxPlayers,
	}
	rules.Uno = session.UnoRules{
		HandSize:   c.Games.Uno.HandSize,
		MaxPlayers: c.Games.Uno.MaxPlayers,
	}
	return rules
}
