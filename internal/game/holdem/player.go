package holdem

import (
	"github.com/lox/lantern/internal/deck"
	"github.com/lox/lantern/poker"
)

// Player is a seat at the poker table.
type Player struct {
	Chips    int
	Pocket   []deck.Card
	RoundBet int
	TotalBet int
	Folded   bool
	// Acted is set once the player has called, checked or raised in the
	// current betting round.
	Acted bool
	// Best is filled in at showdown.
	Best poker.HandValue

	pendingRaise int
}

func (p *Player) commit(amount int) {
	p.Chips -= amount
	p.RoundBet += amount
	p.TotalBet += amount
}

func (p *Player) reset() {
	p.Pocket = nil
	p.RoundBet = 0
	p.TotalBet = 0
	p.Folded = false
	p.Acted = false
	p.Best = 0
	p.pendingRaise = 0
}
