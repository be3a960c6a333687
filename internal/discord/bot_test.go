package discord

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/randutil"
	"github.com/lox/lantern/internal/session"
)

type fakeAPI struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	sent      []string
	edits     []*discordgo.MessageEdit
	expired   []*discordgo.WebhookEdit
	messages  int
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) InteractionResponse(i *discordgo.Interaction, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages++
	return &discordgo.Message{ID: fmt.Sprintf("menu-%d", f.messages), ChannelID: i.ChannelID}, nil
}

func (f *fakeAPI) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID}, nil
}

func (f *fakeAPI) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1]
}

func (f *fakeAPI) lastEdit(t *testing.T) *discordgo.MessageEdit {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

func (f *fakeAPI) announcements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeAPI) expiredPrompts() []*discordgo.WebhookEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.WebhookEdit(nil), f.expired...)
}

func newTestBot(t *testing.T, opts ...session.Option) (*Bot, *fakeAPI, *session.Registry) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	opts = append([]session.Option{session.WithRand(randutil.New(3))}, opts...)
	registry := session.NewRegistry(logger, session.DefaultRules(), opts...)
	api := &fakeAPI{}
	return newBot(Config{}, api, registry, logger), api, registry
}

func member(id, name string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: name}}
}

func command(channel, name string, m *discordgo.Member) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: channel,
		Member:    m,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name},
	}
}

func click(channel, customID string, m *discordgo.Member) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: channel,
		Member:    m,
		Message:   &discordgo.Message{ID: "menu-1", ChannelID: channel},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}
}

// clickPrompt presses a button inside an ephemeral prompt.
func clickPrompt(channel, customID string, m *discordgo.Member) *discordgo.Interaction {
	i := click(channel, customID, m)
	i.Message = &discordgo.Message{ID: "prompt", ChannelID: channel, Content: "prompt", Flags: discordgo.MessageFlagsEphemeral}
	return i
}

func submit(channel, customID, value string, m *discordgo.Member) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionModalSubmit,
		ChannelID: channel,
		Member:    m,
		Message:   &discordgo.Message{ID: "menu-1", ChannelID: channel},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: customID,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: "value", Value: value},
				}},
			},
		},
	}
}

func assertEphemeral(t *testing.T, resp *discordgo.InteractionResponse, text string) {
	t.Helper()
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	require.NotNil(t, resp.Data)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, text, resp.Data.Content)
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	bot.HandleInteraction(command("c1", "help", member("u1", "ana")))
	assertEphemeral(t, api.lastResponse(t), HelpText)
}

func TestStartCommandPostsMenu(t *testing.T) {
	t.Parallel()

	bot, api, registry := newTestBot(t)
	ana := member("u1", "ana")

	bot.HandleInteraction(command("c1", "counter", ana))
	resp := api.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Zero(t, resp.Data.Flags)
	assert.Equal(t, "Counter: 0", resp.Data.Content)
	require.Len(t, rows(t, resp.Data.Components), 1)

	menu, ok := bot.Menu("c1")
	require.True(t, ok)
	assert.Equal(t, "menu-1", menu)
	assert.Equal(t, 1, registry.Len())

	bot.HandleInteraction(command("c1", "uno", ana))
	assertEphemeral(t, api.lastResponse(t), "A game has already been started in this channel.")
	assert.Equal(t, 1, registry.Len())
}

func TestCounterPromptFlow(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	ana := member("u1", "ana")
	bot.HandleInteraction(command("c1", "counter", ana))

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionHitOrMiss, "", 1), ana))
	resp := api.lastResponse(t)
	assertEphemeral(t, resp, "Hit or miss?")
	prompt := rows(t, resp.Data.Components)
	require.Len(t, prompt, 1)
	require.Len(t, prompt[0], 2)

	bot.HandleInteraction(clickPrompt("c1", prompt[0][0].CustomID, ana))
	resp = api.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Equal(t, "You've hit it!", resp.Data.Content)
	assert.Empty(t, resp.Data.Components)

	edit := api.lastEdit(t)
	assert.Equal(t, "menu-1", edit.ID)
	assert.Equal(t, "c1", edit.Channel)
	assert.Equal(t, "Counter: 1", *edit.Content)
	assert.Len(t, *edit.Components, 1)
}

func TestRefreshDefersUpdate(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	ana := member("u1", "ana")
	bot.HandleInteraction(command("c1", "counter", ana))

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionRefresh, "", 2), ana))
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, api.lastResponse(t).Type)
	assert.Equal(t, "Counter: 0", *api.lastEdit(t).Content)
}

func TestNoticesAreEphemeral(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	ana := member("u1", "ana")

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionJoin, "", 1), ana))
	assertEphemeral(t, api.lastResponse(t), msgNoSession)

	bot.HandleInteraction(command("c1", "poker", ana))
	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionStart, "", 1), ana))
	assertEphemeral(t, api.lastResponse(t), game.MsgNotInGame)

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionTimeout, "", 1), ana))
	assertEphemeral(t, api.lastResponse(t), game.MsgUnavailable)

	bot.HandleInteraction(click("c1", "game_poker_join", ana))
	assertEphemeral(t, api.lastResponse(t), game.MsgUnavailable)
}

func TestJoinAnnouncesWithDisplayName(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	ana := member("u1", "ana")
	ana.Nick = "Ana"
	bot.HandleInteraction(command("c1", "blackjack", ana))

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionJoin, "", 1), ana))
	assert.Equal(t, []string{"Ana joined the game."}, api.announcements())
}

func startBlackjackRound(t *testing.T, bot *Bot, m *discordgo.Member) {
	t.Helper()
	bot.HandleInteraction(command("c1", "blackjack", m))
	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionJoin, "", 1), m))
	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionStart, "", 3), m))
}

func TestBetOpensModal(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	ana := member("u1", "ana")
	startBlackjackRound(t, bot, ana)

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionBet, inputArg, 1), ana))
	resp := api.lastResponse(t)
	require.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	assert.Equal(t, "Place Bet", resp.Data.Title)
	assert.Equal(t, "lantern:bet:?", resp.Data.CustomID)

	bot.HandleInteraction(submit("c1", resp.Data.CustomID, " 25 ", ana))
	resp = api.lastResponse(t)
	assertEphemeral(t, resp, "Bet 25 chips? You have 300.")
	confirm := rows(t, resp.Data.Components)[0][0]
	assert.Equal(t, "Yes", confirm.Label)

	bot.HandleInteraction(clickPrompt("c1", confirm.CustomID, ana))
	resp = api.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Equal(t, "Bet of 25 placed!", resp.Data.Content)
}

func TestBadBetIsANotice(t *testing.T) {
	t.Parallel()

	bot, api, _ := newTestBot(t)
	ana := member("u1", "ana")
	startBlackjackRound(t, bot, ana)

	bot.HandleInteraction(submit("c1", EncodeCustomID(game.ActionBet, inputArg, 0), "lots", ana))
	assertEphemeral(t, api.lastResponse(t), "lots is not a valid number.")
}

func TestExpiredPromptIsRewritten(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	bot, api, _ := newTestBot(t, session.WithClock(mClock))
	ana := member("u1", "ana")
	startBlackjackRound(t, bot, ana)

	bot.HandleInteraction(submit("c1", EncodeCustomID(game.ActionBet, inputArg, 0), "25", ana))
	mClock.Advance(session.DefaultPromptTimeout).MustWait(ctx)

	require.Eventually(t, func() bool { return len(api.expiredPrompts()) == 1 }, 2*time.Second, 10*time.Millisecond)
	edit := api.expiredPrompts()[0]
	assert.Equal(t, "Your bet confirmation expired, so the bet was cancelled.", *edit.Content)
	assert.Empty(t, *edit.Components)
}

func TestQuitStripsMenu(t *testing.T) {
	t.Parallel()

	bot, api, registry := newTestBot(t)
	ana := member("u1", "ana")
	bot.HandleInteraction(command("c1", "counter", ana))

	bot.HandleInteraction(click("c1", EncodeCustomID(game.ActionEnd, "", 3), ana))
	edit := api.lastEdit(t)
	assert.Empty(t, *edit.Components)
	sent := api.announcements()
	require.NotEmpty(t, sent)
	assert.Equal(t, "ana ended the game.\nThe counter finished at 0.", sent[len(sent)-1])

	_, ok := bot.Menu("c1")
	assert.False(t, ok)
	assert.Zero(t, registry.Len())
}

func TestRegistryEndStripsMenu(t *testing.T) {
	t.Parallel()

	bot, api, registry := newTestBot(t)
	bot.HandleInteraction(command("c1", "uno", member("u1", "ana")))

	require.True(t, registry.End("c1"))
	edit := api.lastEdit(t)
	assert.Equal(t, "menu-1", edit.ID)
	assert.Empty(t, *edit.Components)

	_, ok := bot.Menu("c1")
	assert.False(t, ok)
}

func TestOtherTransportsAreIgnored(t *testing.T) {
	t.Parallel()

	bot, api, registry := newTestBot(t)
	_, err := registry.Start("lobby", game.Counter, "u1")
	require.NoError(t, err)

	require.True(t, registry.End("lobby"))
	bot.Publish(session.Update{Channel: "lobby", Timeout: true})

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.edits)
	assert.Empty(t, api.expired)
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		i    *discordgo.Interaction
		id   game.PlayerID
		show string
	}{
		{"nick", &discordgo.Interaction{Member: &discordgo.Member{Nick: "Nick", User: &discordgo.User{ID: "1", Username: "user", GlobalName: "Global"}}}, "1", "Nick"},
		{"global name", &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "2", Username: "user", GlobalName: "Global"}}}, "2", "Global"},
		{"direct message", &discordgo.Interaction{User: &discordgo.User{ID: "3", Username: "user"}}, "3", "user"},
		{"nobody", &discordgo.Interaction{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, name := identity(tt.i)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.show, name)
		})
	}
}
