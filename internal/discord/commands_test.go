package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommandAPI struct {
	registered []*discordgo.ApplicationCommand
	guild      string
	err        error
}

func (f *fakeCommandAPI) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.guild = guildID
	f.registered = commands
	return commands, nil
}

func (f *fakeCommandAPI) ApplicationCommands(appID, guildID string, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.registered, nil
}

func TestCommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range Commands() {
		names = append(names, c.Name)
		assert.NotEmpty(t, c.Description, c.Name)
	}
	assert.Equal(t, []string{"help", "counter", "blackjack", "poker", "uno"}, names)
}

func TestSyncListClear(t *testing.T) {
	t.Parallel()

	api := &fakeCommandAPI{}
	synced, err := Sync(api, "app", "guild")
	require.NoError(t, err)
	assert.Len(t, synced, len(Commands()))
	assert.Equal(t, "guild", api.guild)

	listed, err := List(api, "app", "guild")
	require.NoError(t, err)
	assert.Len(t, listed, len(Commands()))

	require.NoError(t, Clear(api, "app", "guild"))
	listed, err = List(api, "app", "guild")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestSyncError(t *testing.T) {
	t.Parallel()

	api := &fakeCommandAPI{err: errors.New("401 Unauthorized")}
	_, err := Sync(api, "app", "")
	assert.ErrorContains(t, err, "failed to sync commands")
	assert.Error(t, Clear(api, "app", ""))
}
