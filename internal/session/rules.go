package session

import (
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/game/blackjack"
	"github.com/lox/lantern/internal/game/counter"
	"github.com/lox/lantern/internal/game/holdem"
	"github.com/lox/lantern/internal/game/uno"
)

// DefaultPromptTimeout is how long a private prompt waits for an answer.
const DefaultPromptTimeout = 60 * time.Second

// TableRules are the settings shared by the chip games.
type TableRules struct {
	StartingChips int
	MaxPlayers    int
}

// UnoRules are the Uno table settings.
type UnoRules struct {
	HandSize   int
	MaxPlayers int
}

// Rules configure every game the registry creates. Zero values fall back to
// each game's defaults.
type Rules struct {
	PromptTimeout time.Duration
	Blackjack     TableRules
	Poker         TableRules
	Uno           UnoRules
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		PromptTimeout: DefaultPromptTimeout,
		Blackjack: TableRules{
			StartingChips: blackjack.DefaultStartingChips,
			MaxPlayers:    blackjack.DefaultMaxPlayers,
		},
		Poker: TableRules{
			StartingChips: holdem.DefaultStartingChips,
			MaxPlayers:    holdem.DefaultMaxPlayers,
		},
		Uno: UnoRules{
			HandSize:   uno.DefaultHandSize,
			MaxPlayers: uno.DefaultMaxPlayers,
		},
	}
}

// NewGame builds a fresh game of the given kind.
func (r Rules) NewGame(kind game.Kind, rng *rand.Rand) (game.Game, error) {
	switch kind {
	case game.Counter:
		return counter.New(), nil
	case game.Blackjack:
		var opts []blackjack.Option
		if r.Blackjack.StartingChips > 0 {
			opts = append(opts, blackjack.WithStartingChips(r.Blackjack.StartingChips))
		}
		if r.Blackjack.MaxPlayers > 0 {
			opts = append(opts, blackjack.WithMaxPlayers(r.Blackjack.MaxPlayers))
		}
		return blackjack.New(rng, opts...), nil
	case game.Poker:
		var opts []holdem.Option
		if r.Poker.StartingChips > 0 {
			opts = append(opts, holdem.WithStartingChips(r.Poker.StartingChips))
		}
		if r.Poker.MaxPlayers > 0 {
			opts = append(opts, holdem.WithMaxPlayers(r.Poker.MaxPlayers))
		}
		return holdem.New(rng, opts...), nil
	case game.Uno:
		var opts []uno.Option
		if r.Uno.HandSize > 0 {
			opts = append(opts, uno.WithHandSize(r.Uno.HandSize))
		}
		if r.Uno.MaxPlayers > 0 {
			opts = append(opts, uno.WithMaxPlayers(r.Uno.MaxPlayers))
		}
		return uno.New(rng, opts...), nil
	default:
		return nil, fmt.Errorf("unknown game kind %d", kind)
	}
}
