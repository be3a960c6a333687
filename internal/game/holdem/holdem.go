// Package holdem runs a no-limit Texas Hold'em hand for the players seated in
// a channel.
//
// Each hand goes through four betting rounds (pre-flop, flop, turn and
// river) and ends at the showdown. A betting round is settled once every
// player still in the hand has acted and matched the largest bet. There are
// no blinds and no all-ins: a player who cannot cover a call has to fold.
package holdem

import (
	"fmt"
	rand "math/rand/v2"
	"strconv"
	"strings"

	"github.com/lox/lantern/internal/deck"
	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/poker"
)

// State is the phase of the hand.
type State int

const (
	Joining State = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
	Ended
)

func (s State) String() string {
	switch s {
	case Joining:
		return "joining"
	case PreFlop:
		return "pre-flop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Betting reports whether players are acting in s.
func (s State) Betting() bool {
	return s >= PreFlop && s <= River
}

const (
	DefaultStartingChips = 10000
	DefaultMaxPlayers    = 8
	minPlayers           = 2

	// MaxSeats is the most players one 52-card deck covers: two pocket
	// cards each plus the five board cards.
	MaxSeats  = (52 - boardSize) / 2
	boardSize = 5
)

// Option configures a Game.
type Option func(*Game)

// WithStartingChips sets each new player's stack.
func WithStartingChips(n int) Option {
	return func(g *Game) { g.startingChips = n }
}

// WithMaxPlayers caps the table size, never above MaxSeats.
func WithMaxPlayers(n int) Option {
	return func(g *Game) { g.MaxPlayers = min(n, MaxSeats) }
}

// WithDeck replaces the per-hand deck factory.
func WithDeck(fn func() *deck.Deck[deck.Card]) Option {
	return func(g *Game) { g.newDeck = fn }
}

// Game is one poker table.
type Game struct {
	game.Table[Player]

	state         State
	startingChips int
	newDeck       func() *deck.Deck[deck.Card]
	deck          *deck.Deck[deck.Card]

	Board []deck.Card
	// runout holds the board cards still face down. They are dealt with
	// the pockets so revealing a street never draws.
	runout     []deck.Card
	Pool       int
	LargestBet int

	// active is the turn order restricted to players who have not folded.
	active []game.PlayerID
	turn   int

	winners []game.PlayerID
}

// New creates a table. The rng drives shuffling and is required.
func New(rng *rand.Rand, opts ...Option) *Game {
	if rng == nil {
		panic("holdem: rng is required")
	}

	g := &Game{
		Table:         game.NewTable[Player](DefaultMaxPlayers),
		startingChips: DefaultStartingChips,
		newDeck: func() *deck.Deck[deck.Card] {
			return deck.NewStandardDeck(rng)
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Game) Kind() game.Kind { return game.Poker }

// State returns the current phase.
func (g *Game) State() State {
	if g.Ended() {
		return Ended
	}
	return g.state
}

// Active returns the players still in the hand, in turn order.
func (g *Game) Active() []game.PlayerID {
	return append([]game.PlayerID(nil), g.active...)
}

// Winners returns the players who took the pool at the last showdown.
func (g *Game) Winners() []game.PlayerID {
	return append([]game.PlayerID(nil), g.winners...)
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
	case game.ActionCall:
		return g.call(a)
	case game.ActionRaise:
		return g.raise(a)
	case game.ActionConfirm:
		return g.confirm(a)
	case game.ActionCancel:
		return g.cancel(a)
	case game.ActionFold:
		return g.fold(a)
	case game.ActionViewHand:
		return g.viewHand(a)
	case game.ActionRestart:
		return g.restart(a)
	case game.ActionEnd:
		if err := g.Validate(a.Player, game.InGame); err != nil {
			return game.Outcome{}, err
		}
		if g.state.Betting() {
			return game.Outcome{}, game.Noticef("You can only end the game between hands.")
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
		return game.Outcome{}, game.Noticef("This game has already started.")
	}
	if g.Len() < minPlayers {
		return game.Outcome{}, game.Noticef("Poker needs at least %d players.", minPlayers)
	}
	for _, id := range g.Order {
		if g.Get(id).Chips <= 0 {
			return game.Outcome{}, game.Noticef("%s is out of chips and must leave before the next round.", g.Name(id))
		}
	}

	d := g.newDeck()
	if need := 2*g.Len() + boardSize; d.Len() < need {
		return game.Outcome{}, fmt.Errorf("%w: dealing poker: %d cards for %d players, need %d",
			game.ErrInvariant, d.Len(), g.Len(), need)
	}

	g.Open = false
	g.deck = d
	for _, id := range g.Order {
		pocket, err := g.draw(2)
		if err != nil {
			return game.Outcome{}, err
		}
		g.Get(id).Pocket = pocket
	}
	runout, err := g.draw(boardSize)
	if err != nil {
		return game.Outcome{}, err
	}
	g.runout = runout
	g.active = append([]game.PlayerID(nil), g.Order...)
	g.state = PreFlop
	g.beginRound()

	var out game.Outcome
	out.Announce("%s started the game!", g.Name(a.Player))
	out.Announce("Dealing cards... Use View Hand to see your pocket.")
	out.Announce("It's %s's turn.", g.Name(g.Current))
	return out, nil
}

func (g *Game) draw(n int) ([]deck.Card, error) {
	cards, err := g.deck.Draw(n)
	if err != nil {
		return nil, fmt.Errorf("%w: dealing poker: %w", game.ErrInvariant, err)
	}
	return cards, nil
}

// beginRound clears per-round bets and gives the turn to the first active
// player.
func (g *Game) beginRound() {
	g.LargestBet = 0
	for _, id := range g.active {
		p := g.Get(id)
		p.RoundBet = 0
		p.Acted = false
	}
	g.turn = 0
	g.Current = g.active[0]
}

func (g *Game) betting(a game.Action) (*Player, error) {
	if err := g.Validate(a.Player, game.InGame|game.OnTurn); err != nil {
		return nil, err
	}
	if !g.state.Betting() {
		return nil, game.Unavailable()
	}
	return g.Get(a.Player), nil
}

func (g *Game) call(a game.Action) (game.Outcome, error) {
	p, err := g.betting(a)
	if err != nil {
		return game.Outcome{}, err
	}

	owed := g.LargestBet - p.RoundBet
	if owed > p.Chips {
		return game.Outcome{}, game.Noticef("You cannot afford this bet.")
	}
	p.commit(owed)
	g.Pool += owed
	p.Acted = true
	p.pendingRaise = 0

	var out game.Outcome
	if owed == 0 {
		out.Announce("%s checks.", g.Name(a.Player))
	} else {
		out.Announce("%s calls %d and has %d chips left.", g.Name(a.Player), owed, p.Chips)
	}
	more, err := g.advance()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(more)
	return out, nil
}

func (g *Game) raise(a game.Action) (game.Outcome, error) {
	p, err := g.betting(a)
	if err != nil {
		return game.Outcome{}, err
	}

	amount, err := strconv.Atoi(strings.TrimSpace(a.Arg))
	if err != nil {
		return game.Outcome{}, game.Noticef("%s is not a valid number.", a.Arg)
	}
	if err := g.checkRaise(p, amount); err != nil {
		return game.Outcome{}, err
	}

	p.pendingRaise = amount
	text := fmt.Sprintf("Betting %d. Your round bet would be %d.", amount, p.RoundBet+amount)
	return game.Outcome{Prompt: game.Confirmation(text, strconv.Itoa(amount))}, nil
}

func (g *Game) checkRaise(p *Player, amount int) error {
	switch {
	case amount <= 0:
		return game.Noticef("Bets must be at least 1 chip.")
	case amount > p.Chips:
		return game.Noticef("You cannot afford this bet.")
	case p.RoundBet+amount < g.LargestBet:
		return game.Noticef("You need to bet at least %d to match the largest bet.", g.LargestBet-p.RoundBet)
	}
	return nil
}

func (g *Game) confirm(a game.Action) (game.Outcome, error) {
	p, err := g.betting(a)
	if err != nil {
		return game.Outcome{}, err
	}
	amount := p.pendingRaise
	p.pendingRaise = 0
	if amount == 0 {
		return game.Outcome{}, game.Noticef("You have no bet waiting for confirmation.")
	}
	// The largest bet may have moved since the prompt was opened.
	if err := g.checkRaise(p, amount); err != nil {
		return game.Outcome{}, err
	}

	p.commit(amount)
	g.Pool += amount
	p.Acted = true
	if p.RoundBet > g.LargestBet {
		g.LargestBet = p.RoundBet
		for _, id := range g.active {
			if id != a.Player {
				g.Get(id).Acted = false
			}
		}
	}

	out := game.Replyf("Bet of %d placed!", amount)
	out.Announce("%s has bet %d chips and now has %d chips left!", g.Name(a.Player), amount, p.Chips)
	more, err := g.advance()
	if err != nil {
		return game.Outcome{}, err
	}
	out.Merge(more)
	return out, nil
}

func (g *Game) cancel(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	p := g.Get(a.Player)
	if p.pendingRaise == 0 {
		return game.Outcome{}, game.Noticef("You have no bet waiting for confirmation.")
	}
	p.pendingRaise = 0
	return game.Replyf("Cancelled bet!"), nil
}

// timeout abandons an unanswered raise confirmation.
func (g *Game) timeout(a game.Action) (game.Outcome, error) {
	p := g.Get(a.Player)
	if g.Ended() || p == nil || p.pendingRaise == 0 {
		return game.Outcome{}, nil
	}
	p.pendingRaise = 0
	return game.Replyf("Your bet confirmation expired, so the bet was cancelled."), nil
}

func (g *Game) fold(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if !g.state.Betting() {
		return game.Outcome{}, game.Unavailable()
	}
	p := g.Get(a.Player)
	if p.Folded {
		return game.Outcome{}, game.Noticef("You have already folded.")
	}

	idx := -1
	for i, id := range g.active {
		if id == a.Player {
			idx = i
			break
		}
	}
	if idx < 0 {
		return game.Outcome{}, fmt.Errorf("%w: %s is not folded but missing from the active order", game.ErrInvariant, a.Player)
	}

	p.Folded = true
	p.pendingRaise = 0
	held := g.Current == a.Player
	g.active = append(g.active[:idx], g.active[idx+1:]...)
	if idx < g.turn {
		g.turn--
	}

	var out game.Outcome
	out.Announce("%s has folded!", g.Name(a.Player))

	if len(g.active) == 1 {
		out.Merge(g.finalize())
		return out, nil
	}
	if g.settled() {
		more, err := g.nextStreet()
		if err != nil {
			return game.Outcome{}, err
		}
		out.Merge(more)
		return out, nil
	}
	if held {
		// The turn index already points at the player after the folder.
		g.turn %= len(g.active)
		g.Current = g.active[g.turn]
		out.Announce("It's %s's turn.", g.Name(g.Current))
	}
	return out, nil
}

// settled reports whether the betting round is complete.
func (g *Game) settled() bool {
	for _, id := range g.active {
		p := g.Get(id)
		if !p.Acted || p.RoundBet != g.LargestBet {
			return false
		}
	}
	return true
}

func (g *Game) advance() (game.Outcome, error) {
	if g.settled() {
		return g.nextStreet()
	}
	g.turn = (g.turn + 1) % len(g.active)
	g.Current = g.active[g.turn]

	var out game.Outcome
	out.Announce("It's %s's turn.", g.Name(g.Current))
	return out, nil
}

func (g *Game) nextStreet() (game.Outcome, error) {
	var (
		out   game.Outcome
		n     int
		next  State
		label string
	)
	switch len(g.Board) {
	case 0:
		n, next, label = 3, Flop, "The flop"
	case 3:
		n, next, label = 1, Turn, "The turn"
	case 4:
		n, next, label = 1, River, "The river"
	default:
		return g.showdown()
	}

	if len(g.runout) < n {
		return game.Outcome{}, fmt.Errorf("%w: %d board cards left, need %d", game.ErrInvariant, len(g.runout), n)
	}
	g.Board = append(g.Board, g.runout[:n]...)
	g.runout = g.runout[n:]
	g.state = next
	g.beginRound()

	out.Announce("%s: %s", label, deck.FormatCards(g.Board))
	out.Announce("It's %s's turn.", g.Name(g.Current))
	return out, nil
}

func (g *Game) showdown() (game.Outcome, error) {
	var best poker.HandValue
	for _, id := range g.active {
		p := g.Get(id)
		v, err := poker.BestOf(p.Pocket, g.Board)
		if err != nil {
			return game.Outcome{}, fmt.Errorf("%w: showdown for %s: %w", game.ErrInvariant, id, err)
		}
		p.Best = v
		if v > best {
			best = v
		}
	}

	var out game.Outcome
	var winners []game.PlayerID
	for _, id := range g.active {
		p := g.Get(id)
		out.Announce("%s shows %s: %s.", g.Name(id), deck.FormatCards(p.Pocket), p.Best)
		if p.Best == best {
			winners = append(winners, id)
		}
	}
	out.Merge(g.award(winners))
	return out, nil
}

// finalize ends the hand when everyone else has folded.
func (g *Game) finalize() game.Outcome {
	return g.award(g.active)
}

// award splits the pool evenly among winners. Chips that don't divide go
// one at a time to the earliest winners in turn order.
func (g *Game) award(winners []game.PlayerID) game.Outcome {
	g.state = Showdown
	g.Current = ""
	g.winners = append([]game.PlayerID(nil), winners...)

	var out game.Outcome
	share, rest := g.Pool/len(winners), g.Pool%len(winners)
	for i, id := range winners {
		won := share
		if i < rest {
			won++
		}
		g.Get(id).Chips += won

		switch {
		case len(g.active) == 1:
			out.Announce("%s wins %d chips as everyone else folded.", g.Name(id), won)
		case len(winners) > 1:
			out.Announce("%s splits the pool and wins %d chips.", g.Name(id), won)
		default:
			out.Announce("%s has WON %d chips!", g.Name(id), won)
		}
	}
	g.Pool = 0
	return out
}

func (g *Game) viewHand(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	p := g.Get(a.Player)
	if len(p.Pocket) == 0 {
		return game.Outcome{}, game.Noticef("You have not been dealt a hand yet.")
	}

	out := game.Replyf("Your hand is %s", deck.FormatCards(p.Pocket))
	if len(g.Board) >= 3 {
		if v, err := poker.BestOf(p.Pocket, g.Board); err == nil {
			out.Reply += fmt.Sprintf(" (%s)", v)
		}
	}
	return out, nil
}

func (g *Game) restart(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != Showdown {
		return game.Outcome{}, game.Unavailable()
	}

	for _, id := range g.Order {
		g.Get(id).reset()
	}
	g.Board = nil
	g.runout = nil
	g.Pool = 0
	g.LargestBet = 0
	g.active = nil
	g.winners = nil
	g.deck = nil
	g.state = Joining
	g.Open = true

	var out game.Outcome
	out.Announce("%s set up a new hand. Join, leave, or press Start.", g.Name(a.Player))
	return out, nil
}

func (g *Game) Render() game.View {
	var b strings.Builder
	b.WriteString("**Poker**\n")

	state := g.State()
	if state == Joining {
		b.WriteString("Who's ready for a game of poker?\n")
	}
	if len(g.Board) > 0 {
		fmt.Fprintf(&b, "Community cards: %s\n", deck.FormatCards(g.Board))
	}
	if state.Betting() {
		fmt.Fprintf(&b, "Pool: %d, largest bet: %d (%s)\n", g.Pool, g.LargestBet, state)
	}

	b.WriteString(g.Roster(func(_ game.PlayerID, p *Player) string {
		switch {
		case p.Folded:
			return fmt.Sprintf("folded, %d chips", p.Chips)
		case state.Betting():
			return fmt.Sprintf("bet %d this round, %d chips", p.RoundBet, p.Chips)
		case state == Showdown && p.Best > 0:
			return fmt.Sprintf("%s, %d chips", p.Best, p.Chips)
		default:
			return fmt.Sprintf("%d chips", p.Chips)
		}
	}))
	b.WriteByte('\n')

	var buttons []game.Button
	switch state {
	case Joining:
		start := game.NewButton("Start Game", game.ActionStart, game.StylePrimary)
		start.Enabled = g.Len() >= minPlayers
		buttons = []game.Button{
			game.NewButton("Join", game.ActionJoin, game.StyleSuccess),
			game.NewButton("Leave", game.ActionLeave, game.StyleSecondary),
			start,
			game.NewButton("End Game", game.ActionEnd, game.StyleDanger),
		}
	case PreFlop, Flop, Turn, River:
		fmt.Fprintf(&b, "\nIt's %s's turn.", g.Name(g.Current))
		raise := game.NewButton("Raise", game.ActionRaise, game.StyleDanger)
		raise.Input = &game.Input{Label: "How much do you want to bet?", Placeholder: "Enter bet here...", MaxLength: 5}
		buttons = []game.Button{
			game.NewButton("View Hand", game.ActionViewHand, game.StylePrimary),
			game.NewButton("Call", game.ActionCall, game.StyleSuccess),
			raise,
			game.NewButton("Fold", game.ActionFold, game.StyleSecondary),
		}
	case Showdown:
		names := make([]string, len(g.winners))
		for i, id := range g.winners {
			names[i] = g.Name(id)
		}
		fmt.Fprintf(&b, "\nWinner: %s", strings.Join(names, ", "))
		buttons = []game.Button{
			game.NewButton("View Hand", game.ActionViewHand, game.StylePrimary),
			game.NewButton("Play Again", game.ActionRestart, game.StyleSuccess),
			game.NewButton("End Game", game.ActionEnd, game.StyleDanger),
		}
	case Ended:
		b.WriteString("\n" + game.MsgEnded)
	}

	return game.View{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}
