package blackjack

import (
	"math"

	"github.com/lox/lantern/internal/deck"
)

// CardValue is a card's blackjack value with Aces counted as 11.
func CardValue(c deck.Card) int {
	switch {
	case c.Rank == deck.Ace:
		return 11
	case c.Rank >= deck.Ten:
		return 10
	default:
		return int(c.Rank)
	}
}

// HandValue totals a hand, counting each Ace as 11 and demoting Aces to 1 one
// at a time while the total is over 21.
func HandValue(cards []deck.Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		total += CardValue(c)
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21.
func IsNatural(cards []deck.Card) bool {
	return len(cards) == 2 && HandValue(cards) == 21
}

// Result is how a player's round was resolved.
type Result int

const (
	Pending Result = iota
	Natural
	Bust
	Win
	Lose
	Push
)

func (r Result) String() string {
	switch r {
	case Pending:
		return "playing"
	case Natural:
		return "blackjack"
	case Bust:
		return "bust"
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Push:
		return "push"
	default:
		return "unknown"
	}
}

// Multiplier is the factor applied to the bet at payout. A Pending player has
// not been compared yet and carries the default of 1.
func (r Result) Multiplier() float64 {
	switch r {
	case Natural:
		return 2.5
	case Win:
		return 2
	case Bust, Lose:
		return 0
	default:
		return 1
	}
}

// Player is a seat at the blackjack table.
type Player struct {
	Chips  int
	Hand   []deck.Card
	Bet    int
	Result Result

	pending int
}

// Value is the player's current hand total.
func (p *Player) Value() int {
	return HandValue(p.Hand)
}

// Payout is what the player receives back for the round.
func (p *Player) Payout() int {
	return int(math.Round(float64(p.Bet) * p.Result.Multiplier()))
}

func (p *Player) reset() {
	p.Hand = nil
	p.Bet = 0
	p.pending = 0
	p.Result = Pending
}
