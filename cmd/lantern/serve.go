package main

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/lantern/cmd/lantern/shared"
	"github.com/lox/lantern/internal/discord"
	"github.com/lox/lantern/internal/randutil"
	"github.com/lox/lantern/internal/server"
	"github.com/lox/lantern/internal/session"
)

// ServeCmd runs the websocket server and the Discord bot over one registry.
type ServeCmd struct {
	Config       string `short:"c" default:"lantern.hcl" help:"Path to HCL configuration file"`
	Addr         string `short:"a" help:"Server address to bind to (overrides config)"`
	Port         int    `short:"p" help:"Server port (overrides config)"`
	LogLevel     string `short:"l" help:"Log level (overrides config)"`
	Token        string `env:"DISCORD_TOKEN" help:"Discord bot token (overrides config)"`
	SyncCommands bool   `help:"Overwrite the bot's slash commands on startup"`
	Seed         *int64 `help:"Deterministic RNG seed for shuffling (optional)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Token != "" {
		cfg.Discord.Token = c.Token
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	}

	registry := session.NewRegistry(logger, cfg.Rules(),
		session.WithRand(randutil.New(seed)))
	defer registry.Shutdown()

	wsServer := server.NewServer(cfg.Addr(), registry, logger,
		server.WithValidator(cfg.Validator()))

	var bot *discord.Bot
	if cfg.Discord.Token != "" {
		bot, err = discord.New(discord.Config{
			Token:         cfg.Discord.Token,
			ApplicationID: cfg.Discord.ApplicationID,
			GuildID:       cfg.Discord.GuildID,
			SyncCommands:  c.SyncCommands,
		}, registry, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("No Discord token configured, serving websockets only")
	}

	ctx := shared.SetupSignalHandler(logger)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsServer.Serve(ctx)
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Run(ctx)
		})
	}

	logger.Info("Lantern started",
		"addr", cfg.Addr(),
		"discord", bot != nil,
		"prompt_timeout", cfg.Rules().PromptTimeout)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Lantern stopped", "games", registry.Len())
	return nil
}
