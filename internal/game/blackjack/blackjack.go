// Package blackjack runs a multi-player blackjack table against a house
// dealer.
//
// A round moves Joining → Betting → PlayerTurns → DealerTurn → Payout. Every
// seated player bets once per round (with a yes/no confirmation), the dealer
// deals, players hit or stand in turn order, the dealer draws to 17 and bets
// are settled. From Payout the table either restarts, keeping players and
// chips, or ends.
package blackjack

import (
	"fmt"
	rand "math/rand/v2"
	"strconv"
	"strings"

	"github.com/lox/lantern/internal/deck"
	"github.com/lox/lantern/internal/game"
)

// State is the table's phase.
type State int

const (
	Joining State = iota
	Betting
	PlayerTurns
	DealerTurn
	Payout
	Ended
)

func (s State) String() string {
	switch s {
	case Joining:
		return "joining"
	case Betting:
		return "betting"
	case PlayerTurns:
		return "player turns"
	case DealerTurn:
		return "dealer turn"
	case Payout:
		return "payout"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

const (
	DefaultStartingChips = 300
	DefaultMaxPlayers    = 6
	dealerStandsOn       = 17
)

// Option configures a Game.
type Option func(*Game)

// WithStartingChips sets each new player's stack.
func WithStartingChips(n int) Option {
	return func(g *Game) { g.startingChips = n }
}

// WithMaxPlayers caps the table size.
func WithMaxPlayers(n int) Option {
	return func(g *Game) { g.MaxPlayers = n }
}

// WithDeck replaces the per-round deck factory. Tests use it to stack the
// deck.
func WithDeck(fn func() *deck.Deck[deck.Card]) Option {
	return func(g *Game) { g.newDeck = fn }
}

// Game is one blackjack table.
type Game struct {
	game.Table[Player]

	state         State
	startingChips int
	newDeck       func() *deck.Deck[deck.Card]
	shoe          *deck.Deck[deck.Card]

	dealer       []deck.Card
	dealerHidden bool
	dealerValue  int
	turn         int
}

// New creates a table. The rng drives shuffling and is required.
func New(rng *rand.Rand, opts ...Option) *Game {
	if rng == nil {
		panic("blackjack: rng is required")
	}

	g := &Game{
		Table:         game.NewTable[Player](DefaultMaxPlayers),
		startingChips: DefaultStartingChips,
	}
	// A round that outruns one deck continues from a freshly shuffled one.
	g.newDeck = func() *deck.Deck[deck.Card] {
		return deck.NewStandardDeck(rng, deck.WithReplenish(deck.StandardCards))
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Game) Kind() game.Kind { return game.Blackjack }

// State returns the current phase.
func (g *Game) State() State {
	if g.Ended() {
		return Ended
	}
	return g.state
}

// Dealer returns the dealer's cards and settled value (0 on a bust).
func (g *Game) Dealer() ([]deck.Card, int) {
	return g.dealer, g.dealerValue
}

func (g *Game) Handle(a game.Action) (game.Outcome, error) {
	if a.Kind == game.ActionTimeout {
		return g.timeout(a)
	}
	if err := g.Validate(a.Player, game.NotEnded); err != nil {
		return game.Outcome{}, err
	}

	switch a.Kind {
	case game.ActionJoin:
		if g.state != Joining {
			return game.Outcome{}, game.Noticef(game.MsgNotJoinable)
		}
		return g.Join(a, &Player{Chips: g.startingChips})
	case game.ActionLeave:
		return g.Leave(a)
	case game.ActionStart:
		return g.start(a)
	case game.ActionBet:
		return g.bet(a)
	case game.ActionConfirm:
		return g.confirm(a)
	case game.ActionCancel:
		return g.cancel(a)
	case game.ActionHit:
		return g.hit(a)
	case game.ActionStand:
		return g.stand(a)
	case game.ActionRestart:
		return g.restart(a)
	case game.ActionEnd:
		if err := g.Validate(a.Player, game.InGame); err != nil {
			return game.Outcome{}, err
		}
		if g.state != Joining && g.state != Payout {
			return game.Outcome{}, game.Noticef("You can only end the game between rounds.")
		}
		return g.Finish(a)
	case game.ActionRefresh:
		return game.Outcome{}, nil
	default:
		return game.Outcome{}, game.Unavailable()
	}
}

func (g *Game) start(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != Joining {
		return game.Outcome{}, game.Noticef("The game has already started.")
	}
	for _, id := range g.Order {
		if g.Get(id).Chips <= 0 {
			return game.Outcome{}, game.Noticef("%s is out of chips and must leave before the next round.", g.Name(id))
		}
	}

	g.state = Betting
	g.Open = false

	var out game.Outcome
	out.Announce("Betting is open! Place your bets.")
	return out, nil
}

func (g *Game) bet(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != Betting {
		return game.Outcome{}, game.Noticef("Bets can only be placed during betting.")
	}

	amount, err := strconv.Atoi(strings.TrimSpace(a.Arg))
	if err != nil {
		return game.Outcome{}, game.Noticef("%s is not a valid number.", a.Arg)
	}
	p := g.Get(a.Player)
	switch {
	case amount <= 0:
		return game.Outcome{}, game.Noticef("Bets must be at least 1 chip.")
	case p.Bet > 0:
		return game.Outcome{}, game.Noticef("You've already bet this round.")
	case amount > p.Chips:
		return game.Outcome{}, game.Noticef("You cannot afford this bet.")
	}

	p.pending = amount
	return game.Outcome{
		Prompt: game.Confirmation(fmt.Sprintf("Bet %d chips? You have %d.", amount, p.Chips), strconv.Itoa(amount)),
	}, nil
}

func (g *Game) confirm(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	p := g.Get(a.Player)
	if g.state != Betting || p.pending == 0 {
		return game.Outcome{}, game.Noticef("You have no bet waiting for confirmation.")
	}
	if p.Bet > 0 {
		p.pending = 0
		return game.Outcome{}, game.Noticef("You've already bet this round.")
	}
	if p.pending > p.Chips {
		p.pending = 0
		return game.Outcome{}, game.Noticef("You cannot afford this bet.")
	}

	p.Bet = p.pending
	p.Chips -= p.pending
	p.pending = 0

	out := game.Replyf("Bet of %d placed!", p.Bet)
	out.Announce("%s bets %d.", g.Name(a.Player), p.Bet)

	for _, id := range g.Order {
		if g.Get(id).Bet == 0 {
			return out, nil
		}
	}

	dealt, err := g.deal()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(dealt)
	return out, nil
}

func (g *Game) cancel(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	p := g.Get(a.Player)
	if p.pending == 0 {
		return game.Outcome{}, game.Noticef("You have no bet waiting for confirmation.")
	}
	p.pending = 0
	return game.Replyf("Cancelled bet!"), nil
}

// timeout is an unanswered bet confirmation; anything else is stale.
func (g *Game) timeout(a game.Action) (game.Outcome, error) {
	p := g.Get(a.Player)
	if g.Ended() || p == nil || p.pending == 0 {
		return game.Outcome{}, nil
	}
	p.pending = 0
	return game.Replyf("Your bet confirmation expired, so the bet was cancelled."), nil
}

func (g *Game) draw(n int) ([]deck.Card, error) {
	cards, err := g.shoe.Draw(n)
	if err != nil {
		return nil, fmt.Errorf("%w: dealing blackjack: %w", game.ErrInvariant, err)
	}
	return cards, nil
}

func (g *Game) deal() (game.Outcome, error) {
	g.shoe = g.newDeck()

	dealer, err := g.draw(2)
	if err != nil {
		return game.Outcome{}, err
	}
	g.dealer = dealer
	g.dealerHidden = true

	for _, id := range g.Order {
		hand, err := g.draw(2)
		if err != nil {
			return game.Outcome{}, err
		}
		g.Get(id).Hand = hand
	}

	var out game.Outcome
	out.Announce("Cards are dealt. The dealer shows %s.", g.dealer[0])

	if IsNatural(g.dealer) {
		g.dealerHidden = false
		g.dealerValue = 21
		out.Announce("The dealer has a natural blackjack: %s.", deck.FormatCards(g.dealer))
		out.Merge(g.payout())
		return out, nil
	}

	g.state = PlayerTurns
	g.turn = -1
	more, err := g.advance()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(more)
	return out, nil
}

// advance moves to the next player who needs to act, skipping naturals, and
// hands over to the dealer after the last one.
func (g *Game) advance() (game.Outcome, error) {
	var out game.Outcome
	for g.turn++; g.turn < len(g.Order); g.turn++ {
		id := g.Order[g.turn]
		p := g.Get(id)
		if IsNatural(p.Hand) {
			p.Result = Natural
			out.Announce("%s has a natural blackjack!", g.Name(id))
			continue
		}
		g.Current = id
		out.Announce("It's %s's turn.", g.Name(id))
		return out, nil
	}

	g.Current = ""
	more, err := g.dealerTurn()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(more)
	return out, nil
}

func (g *Game) hit(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame|game.OnTurn); err != nil {
		return game.Outcome{}, err
	}
	if g.state != PlayerTurns {
		return game.Outcome{}, game.Unavailable()
	}

	cards, err := g.draw(1)
	if err != nil {
		return game.Outcome{}, err
	}
	p := g.Get(a.Player)
	p.Hand = append(p.Hand, cards...)
	value := p.Value()

	out := game.Replyf("You drew %s. Your hand is worth %d.", cards[0], value)
	switch {
	case value > 21:
		p.Result = Bust
		out.Announce("%s busts with %d.", g.Name(a.Player), value)
	case value == 21:
		out.Announce("%s has 21.", g.Name(a.Player))
	default:
		return out, nil
	}

	more, err := g.advance()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(more)
	return out, nil
}

func (g *Game) stand(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame|game.OnTurn); err != nil {
		return game.Outcome{}, err
	}
	if g.state != PlayerTurns {
		return game.Outcome{}, game.Unavailable()
	}

	var out game.Outcome
	out.Announce("%s stands on %d.", g.Name(a.Player), g.Get(a.Player).Value())
	more, err := g.advance()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(more)
	return out, nil
}

func (g *Game) dealerTurn() (game.Outcome, error) {
	g.state = DealerTurn
	g.dealerHidden = false

	for HandValue(g.dealer) < dealerStandsOn {
		cards, err := g.draw(1)
		if err != nil {
			return game.Outcome{}, err
		}
		g.dealer = append(g.dealer, cards...)
	}

	var out game.Outcome
	value := HandValue(g.dealer)
	if value > 21 {
		g.dealerValue = 0
		out.Announce("The dealer busts with %s (%d).", deck.FormatCards(g.dealer), value)
	} else {
		g.dealerValue = value
		out.Announce("The dealer stands with %s (%d).", deck.FormatCards(g.dealer), value)
	}
	out.Merge(g.payout())
	return out, nil
}

// payout resolves every still-pending player against the dealer and pays
// out. Equal totals push: the bet comes back with no gain.
func (g *Game) payout() game.Outcome {
	g.state = Payout
	g.Current = ""

	var out game.Outcome
	for _, id := range g.Order {
		p := g.Get(id)
		if p.Result == Pending {
			switch v := p.Value(); {
			case v > g.dealerValue:
				p.Result = Win
			case v < g.dealerValue:
				p.Result = Lose
			default:
				p.Result = Push
			}
		}
		won := p.Payout()
		p.Chips += won
		out.Announce("%s: %s, receives %d (now %d chips).", g.Name(id), p.Result, won, p.Chips)
	}
	return out
}

func (g *Game) restart(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != Payout {
		return game.Outcome{}, game.Unavailable()
	}

	for _, id := range g.Order {
		g.Get(id).reset()
	}
	g.dealer = nil
	g.dealerHidden = false
	g.dealerValue = 0
	g.shoe = nil
	g.state = Joining
	g.Open = true

	var out game.Outcome
	out.Announce("%s started a new round. Join, leave, or press Start.", g.Name(a.Player))
	return out, nil
}

func (g *Game) Render() game.View {
	var b strings.Builder
	b.WriteString("**Blackjack**\n")

	if len(g.dealer) > 0 {
		if g.dealerHidden {
			fmt.Fprintf(&b, "Dealer: %s ??\n", g.dealer[0])
		} else {
			fmt.Fprintf(&b, "Dealer: %s (%d)\n", deck.FormatCards(g.dealer), HandValue(g.dealer))
		}
	}

	b.WriteString(g.Roster(func(_ game.PlayerID, p *Player) string {
		switch {
		case len(p.Hand) > 0:
			return fmt.Sprintf("%s (%d), bet %d, %s, %d chips", deck.FormatCards(p.Hand), p.Value(), p.Bet, p.Result, p.Chips)
		case g.state == Betting && p.Bet > 0:
			return fmt.Sprintf("bet %d, %d chips", p.Bet, p.Chips)
		case g.state == Betting:
			return fmt.Sprintf("deciding, %d chips", p.Chips)
		default:
			return fmt.Sprintf("%d chips", p.Chips)
		}
	}))
	b.WriteByte('\n')

	var buttons []game.Button
	switch g.State() {
	case Joining:
		b.WriteString("\nJoin the table, then press Start.")
		start := game.NewButton("Start", game.ActionStart, game.StyleSuccess)
		start.Enabled = g.Len() > 0
		buttons = []game.Button{
			game.NewButton("Join", game.ActionJoin, game.StylePrimary),
			game.NewButton("Leave", game.ActionLeave, game.StyleSecondary),
			start,
			game.NewButton("End Game", game.ActionEnd, game.StyleDanger),
		}
	case Betting:
		b.WriteString("\nPlace your bets.")
		bet := game.NewButton("Place Bet", game.ActionBet, game.StylePrimary)
		bet.Input = &game.Input{Label: "Bet amount", Placeholder: "100", MaxLength: 4}
		buttons = []game.Button{bet}
	case PlayerTurns:
		fmt.Fprintf(&b, "\nIt's %s's turn.", g.Name(g.Current))
		buttons = []game.Button{
			game.NewButton("Hit", game.ActionHit, game.StylePrimary),
			game.NewButton("Stand", game.ActionStand, game.StyleSecondary),
		}
	case Payout:
		b.WriteString("\nRound over.")
		buttons = []game.Button{
			game.NewButton("Go Again!", game.ActionRestart, game.StyleSuccess),
			game.NewButton("End Game", game.ActionEnd, game.StyleDanger),
		}
	case Ended:
		b.WriteString("\n" + game.MsgEnded)
	}

	return game.View{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}
