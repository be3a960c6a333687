package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the game server and, with a token, the Discord bot"`
	Client   ClientCmd        `cmd:"" help:"Play in a channel from the terminal"`
	Commands CommandsCmd      `cmd:"" help:"Manage the bot's Discord slash commands"`
	Info     VersionCmd       `cmd:"version" help:"Print the version"`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *kong.Context) error {
	_, err := fmt.Fprintf(ctx.Stdout, "lantern %s\n", version)
	return err
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("lantern"),
		kong.Description("Card games hosted one per channel, over websockets and Discord"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
