package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/lox/lantern/internal/game"
)

// HelpText is shown by /help.
const HelpText = `**Lantern** hosts one game per channel. Start one with a slash command and play with the buttons under its menu.

**/counter** Anyone can press Hit or Miss to move a shared counter up or down.
**/blackjack** Join, then bet each round and play against the dealer. Bets are confirmed privately.
**/poker** Texas hold'em for two or more players. Use View Hand to see your hole cards.
**/uno** Match the top card by color or value. Your hand is private; use Show Hand to play from it.

Only the buttons you can use right now are enabled. Private messages expire if you don't answer them.`

// CommandAPI is the part of a discordgo session used to manage slash
// commands.
type CommandAPI interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

var gameDescriptions = map[game.Kind]string{
	game.Counter:   "Play a simple counter game",
	game.Blackjack: "Play a game of Blackjack",
	game.Poker:     "Play a game of Texas hold'em",
	game.Uno:       "Play a game of Uno",
}

// Commands returns the slash commands the bot answers.
func Commands() []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{{
		Name:        "help",
		Description: "Learn about Lantern and its games",
	}}
	for _, k := range game.Kinds {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        k.String(),
			Description: gameDescriptions[k],
		})
	}
	return cmds
}

// Sync replaces the registered commands with Commands(). An empty guildID
// registers them globally.
func Sync(api CommandAPI, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	cmds, err := api.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	if err != nil {
		return nil, fmt.Errorf("failed to sync commands: %w", err)
	}
	return cmds, nil
}

// List returns the registered commands.
func List(api CommandAPI, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	cmds, err := api.ApplicationCommands(appID, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	return cmds, nil
}

// Clear removes every registered command.
func Clear(api CommandAPI, appID, guildID string) error {
	if _, err := api.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return fmt.Errorf("failed to clear commands: %w", err)
	}
	return nil
}
