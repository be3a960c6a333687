// Package discord hosts the session registry in Discord channels. Slash
// commands start games, each game's menu is a channel message edited in
// place, and private replies and prompts are ephemeral.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/session"
)

const (
	msgNoSession      = "No game is running in this channel."
	msgFailed         = "Something went wrong, please try again."
	msgPromptExpired  = "This prompt has expired."
	msgUnknownCommand = "I don't know that command."
)

// API is the part of a discordgo session the bot calls.
type API interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config holds the bot's credentials.
type Config struct {
	Token         string
	ApplicationID string
	// GuildID limits command registration to one guild; empty registers
	// globally.
	GuildID string
	// SyncCommands overwrites the registered slash commands on startup.
	SyncCommands bool
}

type promptKey struct {
	channel string
	player  game.PlayerID
}

// Bot routes Discord interactions to the registry and renders the results.
type Bot struct {
	cfg      Config
	session  *discordgo.Session
	api      API
	registry *session.Registry
	logger   *log.Logger

	mu sync.Mutex
	// menus maps a channel to the message showing its game.
	menus map[string]string
	// prompts holds the interaction that showed each open expiring prompt,
	// so an expiry can rewrite it.
	prompts map[promptKey]*discordgo.Interaction
}

// New creates a bot with its own gateway session.
func New(cfg Config, registry *session.Registry, logger *log.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	b := newBot(cfg, s, registry, logger)
	b.session = s
	return b, nil
}

func newBot(cfg Config, api API, registry *session.Registry, logger *log.Logger) *Bot {
	b := &Bot{
		cfg:      cfg,
		api:      api,
		registry: registry,
		logger:   logger.WithPrefix("discord"),
		menus:    make(map[string]string),
		prompts:  make(map[promptKey]*discordgo.Interaction),
	}
	registry.AddPublisher(b)
	return b
}

// Run connects to the gateway and serves interactions until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("Connected to Discord", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(i.Interaction)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("Failed to close discord session", "error", err)
		}
	}()

	if b.cfg.SyncCommands {
		cmds, err := Sync(b.session, b.cfg.ApplicationID, b.cfg.GuildID)
		if err != nil {
			return err
		}
		b.logger.Info("Synced slash commands", "count", len(cmds), "guild", b.cfg.GuildID)
	}

	<-ctx.Done()
	return nil
}

// HandleInteraction dispatches one interaction.
func (b *Bot) HandleInteraction(i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(i)
	}
}

func (b *Bot) handleCommand(i *discordgo.Interaction) {
	name := i.ApplicationCommandData().Name
	player, playerName := identity(i)
	b.logger.Debug("Command", "name", name, "channel", i.ChannelID, "player", player)

	if name == "help" {
		b.ephemeral(i, HelpText)
		return
	}
	kind, err := game.ParseKind(name)
	if err != nil {
		b.ephemeral(i, msgUnknownCommand)
		return
	}

	s, err := b.registry.Start(i.ChannelID, kind, player)
	if err != nil {
		var active *session.AlreadyActiveError
		if errors.As(err, &active) {
			b.ephemeral(i, active.Error())
			return
		}
		b.logger.Error("Failed to start game", "channel", i.ChannelID, "game", kind, "error", err)
		b.ephemeral(i, msgFailed)
		return
	}

	view := s.View()
	b.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    Content(view.Text),
			Components: Components(view),
		},
	})

	msg, err := b.api.InteractionResponse(i)
	if err != nil {
		b.logger.Error("Failed to fetch menu message", "channel", i.ChannelID, "error", err)
		return
	}
	b.mu.Lock()
	b.menus[i.ChannelID] = msg.ID
	b.mu.Unlock()
	b.logger.Info("Started game", "channel", i.ChannelID, "game", kind, "starter", playerName)
}

func (b *Bot) handleComponent(i *discordgo.Interaction) {
	kind, arg, err := DecodeCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		b.logger.Warn("Ignoring component", "error", err)
		b.ephemeral(i, game.MsgUnavailable)
		return
	}
	if arg != inputArg {
		b.act(i, kind, arg)
		return
	}

	s, ok := b.registry.Get(i.ChannelID)
	if !ok {
		b.ephemeral(i, msgNoSession)
		return
	}
	btn, ok := findInput(s.View(), kind)
	if !ok {
		b.ephemeral(i, game.MsgUnavailable)
		return
	}
	b.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: Modal(btn),
	})
}

func (b *Bot) handleModal(i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	kind, _, err := DecodeCustomID(data.CustomID)
	if err != nil {
		b.logger.Warn("Ignoring modal", "error", err)
		b.ephemeral(i, game.MsgUnavailable)
		return
	}
	b.act(i, kind, strings.TrimSpace(modalValue(data)))
}

func findInput(v game.View, kind game.ActionKind) (game.Button, bool) {
	for _, btn := range v.Buttons {
		if btn.Kind == kind && btn.Input != nil {
			return btn, true
		}
	}
	return game.Button{}, false
}

func (b *Bot) act(i *discordgo.Interaction, kind game.ActionKind, arg string) {
	if kind == game.ActionTimeout {
		b.ephemeral(i, game.MsgUnavailable)
		return
	}

	player, name := identity(i)
	u, err := b.registry.Handle(i.ChannelID, game.Action{
		Player: player,
		Name:   name,
		Kind:   kind,
		Arg:    arg,
	})
	if err != nil {
		var notice *game.Notice
		switch {
		case errors.Is(err, session.ErrNoSession):
			b.ephemeral(i, msgNoSession)
		case errors.As(err, &notice):
			b.ephemeral(i, notice.Message)
		default:
			b.logger.Error("Action failed", "channel", i.ChannelID, "player", player, "kind", kind, "error", err)
			b.ephemeral(i, msgFailed)
		}
		return
	}

	b.reply(i, u)
	b.deliver(u)
}

// reply answers the interaction with the private part of an update. Clicks
// inside an ephemeral prompt update that prompt instead of adding another
// message.
func (b *Bot) reply(i *discordgo.Interaction, u session.Update) {
	fromPrompt := i.Message != nil && i.Message.Flags&discordgo.MessageFlagsEphemeral != 0
	key := promptKey{channel: u.Channel, player: u.Actor}
	o := u.Outcome

	b.mu.Lock()
	delete(b.prompts, key)
	b.mu.Unlock()

	switch {
	case o.Prompt != nil:
		text := o.Prompt.Text
		if o.Reply != "" {
			text = o.Reply + "\n\n" + text
		}
		resp := &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    Content(text),
				Components: Components(o.Prompt.View),
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		}
		if fromPrompt {
			resp.Type = discordgo.InteractionResponseUpdateMessage
		}
		b.respond(i, resp)
		if o.Prompt.Expires {
			b.mu.Lock()
			b.prompts[key] = i
			b.mu.Unlock()
		}

	case o.Reply != "" && fromPrompt:
		b.respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    Content(o.Reply),
				Components: []discordgo.MessageComponent{},
			},
		})

	case o.Reply != "":
		b.ephemeral(i, o.Reply)

	case fromPrompt:
		b.respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    i.Message.Content,
				Components: []discordgo.MessageComponent{},
			},
		})

	default:
		b.respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
	}
}

// deliver posts the public part of an update: announcements as channel
// messages and the new view on the channel's menu.
func (b *Bot) deliver(u session.Update) {
	if len(u.Outcome.Announcements) > 0 {
		text := Content(strings.Join(u.Outcome.Announcements, "\n"))
		if _, err := b.api.ChannelMessageSend(u.Channel, text); err != nil {
			b.logger.Error("Failed to send announcement", "channel", u.Channel, "error", err)
		}
	}

	b.mu.Lock()
	menuID, ok := b.menus[u.Channel]
	if u.Ended {
		delete(b.menus, u.Channel)
		for key := range b.prompts {
			if key.channel == u.Channel {
				delete(b.prompts, key)
			}
		}
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	content := Content(u.View.Text)
	components := Components(u.View)
	if u.Ended {
		components = []discordgo.MessageComponent{}
	}
	if _, err := b.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         menuID,
		Channel:    u.Channel,
		Content:    &content,
		Components: &components,
	}); err != nil {
		b.logger.Error("Failed to update menu", "channel", u.Channel, "error", err)
	}
}

// Publish implements session.Publisher for expired prompts and games ended
// by the registry. Updates for channels the bot has no menu in belong to
// another transport.
func (b *Bot) Publish(u session.Update) {
	b.mu.Lock()
	_, hosted := b.menus[u.Channel]
	key := promptKey{channel: u.Channel, player: u.Actor}
	prompt := b.prompts[key]
	if u.Timeout {
		delete(b.prompts, key)
	}
	b.mu.Unlock()
	if !hosted {
		return
	}

	if u.Timeout && prompt != nil {
		text := u.Outcome.Reply
		if text == "" {
			text = msgPromptExpired
		}
		content := Content(text)
		components := []discordgo.MessageComponent{}
		if _, err := b.api.InteractionResponseEdit(prompt, &discordgo.WebhookEdit{
			Content:    &content,
			Components: &components,
		}); err != nil {
			b.logger.Error("Failed to expire prompt", "channel", u.Channel, "player", u.Actor, "error", err)
		}
	}
	b.deliver(u)
}

// Menu returns the message ID showing the channel's game.
func (b *Bot) Menu(channel string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.menus[channel]
	return id, ok
}

func (b *Bot) ephemeral(i *discordgo.Interaction, text string) {
	b.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: Content(text),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) {
	if err := b.api.InteractionRespond(i, resp); err != nil {
		b.logger.Error("Failed to respond to interaction", "channel", i.ChannelID, "type", resp.Type, "error", err)
	}
}

// identity returns the acting user and the name to show for them.
func identity(i *discordgo.Interaction) (game.PlayerID, string) {
	var user *discordgo.User
	var nick string
	if i.Member != nil {
		user = i.Member.User
		nick = i.Member.Nick
	}
	if user == nil {
		user = i.User
	}
	if user == nil {
		return "", ""
	}

	name := nick
	if name == "" {
		name = user.GlobalName
	}
	if name == "" {
		name = user.Username
	}
	return game.PlayerID(user.ID), name
}
