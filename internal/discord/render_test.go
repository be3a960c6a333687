package discord

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/lantern/internal/game"
)

func buttons(n int) []game.Button {
	out := make([]game.Button, n)
	for i := range out {
		out[i] = game.NewButton(fmt.Sprintf("B%d", i+1), game.ActionPlay, game.StyleSecondary)
		out[i].Arg = fmt.Sprintf("c%d", i+1)
	}
	return out
}

func rows(t *testing.T, comps []discordgo.MessageComponent) [][]discordgo.Button {
	t.Helper()
	var out [][]discordgo.Button
	for _, c := range comps {
		row, ok := c.(discordgo.ActionsRow)
		require.True(t, ok)
		var bs []discordgo.Button
		for _, rc := range row.Components {
			b, ok := rc.(discordgo.Button)
			require.True(t, ok)
			bs = append(bs, b)
		}
		out = append(out, bs)
	}
	return out
}

func TestComponentsLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		buttons int
		rows    []int
		last    string
	}{
		{0, nil, ""},
		{3, []int{3}, "B3"},
		{5, []int{5}, "B5"},
		{7, []int{5, 2}, "B7"},
		{25, []int{5, 5, 5, 5, 5}, "B25"},
		{31, []int{5, 5, 5, 5, 5}, "B31"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.buttons), func(t *testing.T) {
			t.Parallel()
			got := rows(t, Components(game.View{Buttons: buttons(tt.buttons)}))

			var sizes []int
			seen := map[string]bool{}
			var last string
			for _, row := range got {
				sizes = append(sizes, len(row))
				for _, b := range row {
					assert.False(t, seen[b.CustomID], "duplicate custom ID %s", b.CustomID)
					seen[b.CustomID] = true
					last = b.Label
				}
			}
			assert.Equal(t, tt.rows, sizes)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestComponentsIsNeverNil(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, Components(game.View{}))
}

func TestButtonRendering(t *testing.T) {
	t.Parallel()

	bet := game.NewButton("Place Bet", game.ActionBet, game.StylePrimary)
	bet.Input = &game.Input{Label: "Bet amount", MaxLength: 4}
	fold := game.NewButton("Fold", game.ActionFold, game.StyleDanger)
	fold.Enabled = false

	b := Button(bet, 1)
	assert.Equal(t, "lantern:bet:?#1", b.CustomID)
	assert.Equal(t, discordgo.PrimaryButton, b.Style)
	assert.False(t, b.Disabled)

	b = Button(fold, 2)
	assert.Equal(t, discordgo.DangerButton, b.Style)
	assert.True(t, b.Disabled)
}

func TestContentIsClipped(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Content("short"))

	long := strings.Repeat("♠", maxContent+10)
	got := []rune(Content(long))
	assert.Len(t, got, maxContent)
	assert.Equal(t, '…', got[len(got)-1])
}

func TestModal(t *testing.T) {
	t.Parallel()

	raise := game.NewButton("Raise", game.ActionRaise, game.StyleDanger)
	raise.Input = &game.Input{Label: "How much do you want to bet?", Placeholder: "Enter bet here...", MaxLength: 5}

	data := Modal(raise)
	assert.Equal(t, "Raise", data.Title)
	assert.Equal(t, "lantern:raise:?", data.CustomID)

	require.Len(t, data.Components, 1)
	row := data.Components[0].(discordgo.ActionsRow)
	input := row.Components[0].(discordgo.TextInput)
	assert.Equal(t, "How much do you want to bet?", input.Label)
	assert.Equal(t, discordgo.TextInputShort, input.Style)
	assert.Equal(t, 5, input.MaxLength)
	assert.True(t, input.Required)
}

func TestModalValue(t *testing.T) {
	t.Parallel()

	pointers := discordgo.ModalSubmitInteractionData{
		CustomID: "lantern:bet:?",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "value", Value: "40"},
			}},
		},
	}
	values := discordgo.ModalSubmitInteractionData{
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{CustomID: "value", Value: "15"},
			}},
		},
	}

	assert.Equal(t, "40", modalValue(pointers))
	assert.Equal(t, "15", modalValue(values))
	assert.Empty(t, modalValue(discordgo.ModalSubmitInteractionData{}))
}
