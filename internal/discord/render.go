package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/lox/lantern/internal/game"
)

// Discord message limits.
const (
	maxContent    = 2000
	maxRowButtons = 5
	maxRows       = 5
	maxModalTitle = 45
)

var buttonStyles = map[game.ButtonStyle]discordgo.ButtonStyle{
	game.StylePrimary:   discordgo.PrimaryButton,
	game.StyleSecondary: discordgo.SecondaryButton,
	game.StyleSuccess:   discordgo.SuccessButton,
	game.StyleDanger:    discordgo.DangerButton,
}

// Content clips text to what a message can hold.
func Content(text string) string {
	r := []rune(text)
	if len(r) <= maxContent {
		return text
	}
	return string(r[:maxContent-1]) + "…"
}

// Components lays a view's buttons out in rows. Views with more buttons than
// a message can hold keep the first ones and the last one, which is where
// games put their fallback action.
func Components(v game.View) []discordgo.MessageComponent {
	buttons := v.Buttons
	if limit := maxRows * maxRowButtons; len(buttons) > limit {
		kept := append([]game.Button(nil), buttons[:limit-1]...)
		buttons = append(kept, buttons[len(buttons)-1])
	}

	comps := []discordgo.MessageComponent{}
	var row []discordgo.MessageComponent
	for i, b := range buttons {
		row = append(row, Button(b, i+1))
		if len(row) == maxRowButtons {
			comps = append(comps, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		comps = append(comps, discordgo.ActionsRow{Components: row})
	}
	return comps
}

// Button renders one button; n keeps its custom ID unique in the message.
func Button(b game.Button, n int) discordgo.Button {
	arg := b.Arg
	if b.Input != nil {
		arg = inputArg
	}
	style, ok := buttonStyles[b.Style]
	if !ok {
		style = discordgo.SecondaryButton
	}
	return discordgo.Button{
		Label:    b.Label,
		Style:    style,
		Disabled: !b.Enabled,
		CustomID: EncodeCustomID(b.Kind, arg, n),
	}
}

// Modal asks for the value of a button with an input.
func Modal(b game.Button) *discordgo.InteractionResponseData {
	title := b.Label
	if r := []rune(title); len(r) > maxModalTitle {
		title = string(r[:maxModalTitle])
	}
	input := discordgo.TextInput{
		CustomID:    "value",
		Label:       b.Input.Label,
		Style:       discordgo.TextInputShort,
		Placeholder: b.Input.Placeholder,
		Required:    true,
		MinLength:   1,
		MaxLength:   b.Input.MaxLength,
	}
	return &discordgo.InteractionResponseData{
		CustomID: EncodeCustomID(b.Kind, inputArg, 0),
		Title:    title,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{input}},
		},
	}
}

// modalValue returns the text entered in a submitted modal.
func modalValue(data discordgo.ModalSubmitInteractionData) string {
	for _, c := range data.Components {
		var inner []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			inner = row.Components
		case discordgo.ActionsRow:
			inner = row.Components
		}
		for _, ic := range inner {
			switch ti := ic.(type) {
			case *discordgo.TextInput:
				return ti.Value
			case discordgo.TextInput:
				return ti.Value
			}
		}
	}
	return ""
}
