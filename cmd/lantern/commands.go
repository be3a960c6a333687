package main

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/lox/lantern/internal/discord"
	"github.com/lox/lantern/internal/server"
)

// CommandsCmd manages the slash commands registered for the bot.
type CommandsCmd struct {
	List  CommandsListCmd  `cmd:"" help:"Show the registered commands"`
	Sync  CommandsSyncCmd  `cmd:"" help:"Register the bot's commands, replacing any others"`
	Clear CommandsClearCmd `cmd:"" help:"Remove every registered command"`
}

// DiscordFlags locate the application whose commands are managed.
type DiscordFlags struct {
	Config        string `short:"c" default:"lantern.hcl" help:"Path to HCL configuration file"`
	Token         string `env:"DISCORD_TOKEN" help:"Discord bot token (overrides config)"`
	ApplicationID string `help:"Discord application ID (overrides config)"`
	Guild         string `help:"Guild to manage instead of the global commands (overrides config)"`
}

func (f *DiscordFlags) session() (*discordgo.Session, *server.DiscordSettings, error) {
	cfg, err := server.LoadConfig(f.Config)
	if err != nil {
		return nil, nil, err
	}
	d := cfg.Discord
	if f.Token != "" {
		d.Token = f.Token
	}
	if f.ApplicationID != "" {
		d.ApplicationID = f.ApplicationID
	}
	if f.Guild != "" {
		d.GuildID = f.Guild
	}
	if d.Token == "" || d.ApplicationID == "" {
		return nil, nil, fmt.Errorf("a Discord token and application ID are required")
	}

	s, err := discordgo.New("Bot " + d.Token)
	if err != nil {
		return nil, nil, err
	}
	return s, d, nil
}

type CommandsListCmd struct {
	DiscordFlags
}

func (c *CommandsListCmd) Run() error {
	s, d, err := c.session()
	if err != nil {
		return err
	}
	cmds, err := discord.List(s, d.ApplicationID, d.GuildID)
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		fmt.Println("No commands registered.")
		return nil
	}
	for n, cmd := range cmds {
		fmt.Printf("[%d] /%s: %s\n", n, cmd.Name, cmd.Description)
	}
	return nil
}

type CommandsSyncCmd struct {
	DiscordFlags
}

func (c *CommandsSyncCmd) Run() error {
	s, d, err := c.session()
	if err != nil {
		return err
	}
	cmds, err := discord.Sync(s, d.ApplicationID, d.GuildID)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d commands.\n", len(cmds))
	return nil
}

type CommandsClearCmd struct {
	DiscordFlags
}

func (c *CommandsClearCmd) Run() error {
	s, d, err := c.session()
	if err != nil {
		return err
	}
	if err := discord.Clear(s, d.ApplicationID, d.GuildID); err != nil {
		return err
	}
	fmt.Println("Cleared all commands.")
	return nil
}
