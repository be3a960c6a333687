// Package counter is the simplest channel game: a shared number anyone in
// the channel can bump up or down.
package counter

import (
	"fmt"

	"github.com/lox/lantern/internal/game"
)

// Game is an open counter; it has no roster.
type Game struct {
	game.Table[struct{}]
	count int
}

// New returns a counter starting at zero.
func New() *Game {
	g := &Game{Table: game.NewTable[struct{}](0)}
	g.Open = false
	return g
}

func (g *Game) Kind() game.Kind { return game.Counter }

// Count returns the current value.
func (g *Game) Count() int { return g.count }

func (g *Game) Handle(a game.Action) (game.Outcome, error) {
	if a.Kind == game.ActionTimeout {
		return game.Outcome{}, nil
	}
	if err := g.Validate(a.Player, game.NotEnded); err != nil {
		return game.Outcome{}, err
	}

	switch a.Kind {
	case game.ActionHitOrMiss:
		return game.Outcome{Prompt: &game.Prompt{
			View: game.View{
				Text: "Hit or miss?",
				Buttons: []game.Button{
					game.NewButton("Hit Me!", game.ActionIncrement, game.StyleSuccess),
					game.NewButton("Miss Me!", game.ActionDecrement, game.StyleDanger),
				},
			},
			Expires: true,
		}}, nil
	case game.ActionIncrement:
		g.count++
		return game.Replyf("You've hit it!"), nil
	case game.ActionDecrement:
		g.count--
		return game.Replyf("You've missed it!"), nil
	case game.ActionRefresh:
		return game.Outcome{}, nil
	case game.ActionEnd:
		out, err := g.Finish(a)
		if err == nil {
			out.Announce("The counter finished at %d.", g.count)
		}
		return out, err
	default:
		return game.Outcome{}, game.Unavailable()
	}
}

func (g *Game) Render() game.View {
	v := game.View{
		Text: fmt.Sprintf("Counter: %d", g.count),
		Buttons: []game.Button{
			game.NewButton("Hit or Miss", game.ActionHitOrMiss, game.StylePrimary),
			game.NewButton("Refresh", game.ActionRefresh, game.StyleSecondary),
			game.NewButton("Quit", game.ActionEnd, game.StyleDanger),
		},
	}
	if g.Ended() {
		v.Text += "\n" + game.MsgEnded
		return v.Detached()
	}
	return v
}
