package game

import "fmt"

// ButtonStyle is a rendering hint; transports map it to their own palette.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Input describes a free-form value a button needs before it can be sent,
// such as a bet amount.
type Input struct {
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// Button is one action offered to players.
type Button struct {
	Label   string      `json:"label"`
	Kind    ActionKind  `json:"kind"`
	Arg     string      `json:"arg,omitempty"`
	Enabled bool        `json:"enabled"`
	Style   ButtonStyle `json:"style,omitempty"`
	Input   *Input      `json:"input,omitempty"`
}

// View is what a channel shows: text plus an ordered set of buttons.
type View struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Detached returns the view with every button disabled, which is how a menu
// looks once its game is over.
func (v View) Detached() View {
	out := View{Text: v.Text, Buttons: make([]Button, len(v.Buttons))}
	for i, b := range v.Buttons {
		b.Enabled = false
		out.Buttons[i] = b
	}
	return out
}

// NewButton returns an enabled button.
func NewButton(label string, kind ActionKind, style ButtonStyle) Button {
	return Button{Label: label, Kind: kind, Enabled: true, Style: style}
}

// Prompt is a private view for a single player.
type Prompt struct {
	View
	// Expires marks prompts that are answered with ActionTimeout when the
	// player does not respond in time.
	Expires bool `json:"expires"`
}

// Outcome is the result of handling one action.
type Outcome struct {
	Announcements []string `json:"announcements,omitempty"`
	Reply         string   `json:"reply,omitempty"`
	Prompt        *Prompt  `json:"prompt,omitempty"`
	Ended         bool     `json:"ended,omitempty"`
}

// Announce appends a public message.
func (o *Outcome) Announce(format string, args ...any) {
	o.Announcements = append(o.Announcements, fmt.Sprintf(format, args...))
}

// Merge folds another outcome into o.
func (o *Outcome) Merge(other Outcome) {
	o.Announcements = append(o.Announcements, other.Announcements...)
	if other.Reply != "" {
		o.Reply = other.Reply
	}
	if other.Prompt != nil {
		o.Prompt = other.Prompt
	}
	o.Ended = o.Ended || other.Ended
}

// Replyf returns an outcome that only answers the actor.
func Replyf(format string, args ...any) Outcome {
	return Outcome{Reply: fmt.Sprintf(format, args...)}
}

// Confirmation builds the yes/no prompt used before committing chips.
func Confirmation(text, arg string) *Prompt {
	yes := NewButton("Yes", ActionConfirm, StyleSuccess)
	yes.Arg = arg
	return &Prompt{
		View: View{
			Text:    text,
			Buttons: []Button{yes, NewButton("No", ActionCancel, StyleDanger)},
		},
		Expires: true,
	}
}

// Game is implemented by every channel game.
type Game interface {
	Kind() Kind
	// Handle validates and applies one action. User mistakes come back as
	// *Notice; any other error is an invariant violation.
	Handle(a Action) (Outcome, error)
	Render() View
	Ended() bool
	// End marks the game over. It reports false if it already was.
	End() bool
	Len() int
}
