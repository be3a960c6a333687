// Package uno runs a game of Uno between the players seated in a channel.
package uno

import (
	"cmp"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"strings"

	"github.com/lox/lantern/internal/deck"
	"github.com/lox/lantern/internal/game"
)

// State is the phase of the game.
type State int

const (
	Joining State = iota
	Active
	RoundOver
	Ended
)

func (s State) String() string {
	switch s {
	case Joining:
		return "joining"
	case Active:
		return "active"
	case RoundOver:
		return "round over"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

const (
	DefaultHandSize   = 7
	DefaultMaxPlayers = 10
	minPlayers        = 2

	// MaxDealt is the most cards a deal may use. 32 of the 108 cards are
	// not numbers, so 33 left over always hold an opening card.
	MaxDealt = 108 - 33
)

// Player is a seat at the Uno table.
type Player struct {
	Hand []deck.UnoCard
	// Skipped makes the next turn pass over this player once.
	Skipped bool
}

func (p *Player) take(cards ...deck.UnoCard) {
	p.Hand = append(p.Hand, cards...)
	slices.SortStableFunc(p.Hand, func(a, b deck.UnoCard) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
}

func (p *Player) find(c deck.UnoCard) int {
	return slices.Index(p.Hand, c)
}

// Option configures a Game.
type Option func(*Game)

// WithHandSize sets how many cards each player is dealt.
func WithHandSize(n int) Option {
	return func(g *Game) { g.handSize = n }
}

// WithMaxPlayers caps the table size.
func WithMaxPlayers(n int) Option {
	return func(g *Game) { g.MaxPlayers = n }
}

// WithDeck replaces the per-round deck factory. The factory must pass opts
// through to the deck so exhausted draws refill from the discard pile.
func WithDeck(fn func(opts ...deck.Option[deck.UnoCard]) *deck.Deck[deck.UnoCard]) Option {
	return func(g *Game) { g.newDeck = fn }
}

// Game is one Uno table.
type Game struct {
	game.Table[Player]

	state    State
	rng      *rand.Rand
	handSize int
	newDeck  func(opts ...deck.Option[deck.UnoCard]) *deck.Deck[deck.UnoCard]

	deck     *deck.Deck[deck.UnoCard]
	discard  []deck.UnoCard
	Top      deck.UnoCard
	Reversed bool
	turn     int
	winner   game.PlayerID

	// choosing is the player who owes a color for the Wild they just played.
	choosing  game.PlayerID
	reshuffle bool
}

// New creates a table. The rng drives shuffling and is required.
func New(rng *rand.Rand, opts ...Option) *Game {
	if rng == nil {
		panic("uno: rng is required")
	}

	g := &Game{
		Table:    game.NewTable[Player](DefaultMaxPlayers),
		rng:      rng,
		handSize: DefaultHandSize,
	}
	g.newDeck = func(opts ...deck.Option[deck.UnoCard]) *deck.Deck[deck.UnoCard] {
		return deck.NewUnoDeck(rng, opts...)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Game) Kind() game.Kind { return game.Uno }

// State returns the current phase.
func (g *Game) State() State {
	if g.Ended() {
		return Ended
	}
	return g.state
}

// Winner returns the player who emptied their hand last round.
func (g *Game) Winner() game.PlayerID { return g.winner }

// DeckLen returns the number of cards left to draw.
func (g *Game) DeckLen() int {
	if g.deck == nil {
		return 0
	}
	return g.deck.Len()
}

// DiscardLen returns the size of the discard pile, excluding the top card.
func (g *Game) DiscardLen() int { return len(g.discard) }

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
		return g.Join(a, &Player{})
	case game.ActionLeave:
		return g.Leave(a)
	case game.ActionStart:
		return g.start(a)
	case game.ActionHand:
		return g.hand(a)
	case game.ActionPlay:
		return g.play(a)
	case game.ActionDraw:
		return g.draw(a)
	case game.ActionColor:
		return g.color(a)
	case game.ActionRestart:
		return g.restart(a)
	case game.ActionEnd:
		if err := g.Validate(a.Player, game.InGame); err != nil {
			return game.Outcome{}, err
		}
		if g.state == Active {
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
		return game.Outcome{}, game.Noticef("This game has already started.")
	}
	if g.Len() < minPlayers {
		return game.Outcome{}, game.Noticef("Uno needs at least %d players.", minPlayers)
	}

	g.Open = false
	g.discard = nil
	g.winner = ""
	g.choosing = ""
	g.Reversed = false
	g.deck = g.newDeck(deck.WithReplenish(g.refill))

	for _, id := range g.Order {
		if _, err := g.deal(g.Get(id), g.handSize); err != nil {
			g.abandonDeal()
			return game.Outcome{}, err
		}
	}

	top, err := g.openingCard()
	if err != nil {
		g.abandonDeal()
		return game.Outcome{}, err
	}
	g.Top = top

	g.rng.Shuffle(len(g.Order), func(i, j int) {
		g.Order[i], g.Order[j] = g.Order[j], g.Order[i]
	})
	g.turn = g.rng.IntN(len(g.Order))
	g.Current = g.Order[g.turn]
	g.state = Active

	var out game.Outcome
	out.Announce("%s started the game! The top card is %s.", g.Name(a.Player), g.Top)
	out.Announce("It's %s's turn.", g.Name(g.Current))
	return out, nil
}

// openingCard turns cards until a plain number shows up. Every card left
// after the deal is looked at once at most.
func (g *Game) openingCard() (deck.UnoCard, error) {
	for range g.deck.Len() + len(g.discard) {
		c, err := g.deck.DrawOne()
		if err != nil {
			return deck.UnoCard{}, fmt.Errorf("%w: no opening card: %w", game.ErrInvariant, err)
		}
		if !c.IsWild() && !c.Value.IsAction() {
			return c, nil
		}
		g.discard = append(g.discard, c)
	}
	return deck.UnoCard{}, fmt.Errorf("%w: no number card left for the opening card", game.ErrInvariant)
}

// abandonDeal puts the table back to joining after a failed start.
func (g *Game) abandonDeal() {
	g.Each(func(_ game.PlayerID, p *Player) { p.Hand = nil })
	g.deck = nil
	g.discard = nil
	g.reshuffle = false
	g.Open = true
}

// refill is the deck's replenish policy: the discard pile is shuffled back
// in, leaving the top card on the table.
func (g *Game) refill() []deck.UnoCard {
	cards := g.discard
	g.discard = nil
	if len(cards) > 0 {
		g.reshuffle = true
	}
	return cards
}

// deal gives p up to n cards and returns them. Running out of cards
// entirely is not an error; the player just receives fewer.
func (g *Game) deal(p *Player, n int) ([]deck.UnoCard, error) {
	cards, err := g.deck.Draw(n)
	p.take(cards...)
	if err != nil && !errors.Is(err, deck.ErrEmptyDeck) {
		return cards, fmt.Errorf("%w: dealing uno: %w", game.ErrInvariant, err)
	}
	return cards, nil
}

func (g *Game) reshuffleNotice(out *game.Outcome) {
	if g.reshuffle {
		g.reshuffle = false
		out.Announce("The deck is empty! Shuffling in the discard pile...")
	}
}

// Playable reports whether c may be played on the current top card.
func (g *Game) Playable(c deck.UnoCard) bool {
	if c.IsWild() {
		return true
	}
	if c.Color == g.Top.Color {
		return true
	}
	return g.Top.Value != deck.Blank && c.Value == g.Top.Value
}

func (g *Game) nextIndex() int {
	n := len(g.Order)
	if g.Reversed {
		return (g.turn - 1 + n) % n
	}
	return (g.turn + 1) % n
}

// nextTurn moves the turn along the current direction, passing over and
// clearing skipped players.
func (g *Game) nextTurn() game.Outcome {
	g.turn = g.nextIndex()
	for p := g.Get(g.Order[g.turn]); p.Skipped; p = g.Get(g.Order[g.turn]) {
		p.Skipped = false
		g.turn = g.nextIndex()
	}
	g.Current = g.Order[g.turn]

	var out game.Outcome
	out.Announce("It's %s's turn. The top card is %s.", g.Name(g.Current), g.Top)
	return out
}

func (g *Game) playing(a game.Action) (*Player, error) {
	if err := g.Validate(a.Player, game.InGame|game.OnTurn); err != nil {
		return nil, err
	}
	if g.state != Active {
		return nil, game.Unavailable()
	}
	if g.choosing != "" {
		return nil, game.Noticef("Waiting for %s to choose a color.", g.Name(g.choosing))
	}
	return g.Get(a.Player), nil
}

func (g *Game) play(a game.Action) (game.Outcome, error) {
	p, err := g.playing(a)
	if err != nil {
		return game.Outcome{}, err
	}
	card, err := deck.ParseUnoCard(a.Arg)
	if err != nil {
		return game.Outcome{}, game.Noticef("%s is not a card.", a.Arg)
	}
	idx := p.find(card)
	if idx < 0 {
		return game.Outcome{}, game.Noticef("You don't have that card.")
	}
	if !g.Playable(card) {
		return game.Outcome{}, game.Noticef("You can't play %s on %s.", card, g.Top)
	}

	p.Hand = slices.Delete(p.Hand, idx, idx+1)
	if g.Top.Value != deck.Blank {
		g.discard = append(g.discard, g.Top)
	}

	var out game.Outcome
	out.Announce("%s played %s.", g.Name(a.Player), card)

	if card.IsWild() {
		g.discard = append(g.discard, card)
		g.Top = deck.UnoCard{Color: g.Top.Color, Value: deck.Blank}
	} else {
		g.Top = card
	}

	victim := g.Order[g.nextIndex()]
	switch card.Value {
	case deck.Reverse:
		g.Reversed = !g.Reversed
		out.Announce("Reversing the turn order!")
	case deck.Skip:
		g.Get(victim).Skipped = true
		out.Announce("%s got skipped!", g.Name(victim))
	case deck.DrawTwo, deck.WildDrawFour:
		n := 2
		if card.Value == deck.WildDrawFour {
			n = 4
		}
		got, err := g.deal(g.Get(victim), n)
		if err != nil {
			return game.Outcome{}, err
		}
		g.reshuffleNotice(&out)
		g.Get(victim).Skipped = true
		out.Announce("%s draws %d cards and is skipped!", g.Name(victim), len(got))
	}

	switch len(p.Hand) {
	case 0:
		g.state = RoundOver
		g.winner = a.Player
		g.Current = ""
		out.Announce("%s won! Good game.", g.Name(a.Player))
		return out, nil
	case 1:
		out.Announce("%s has only one card left!", g.Name(a.Player))
	}

	if card.IsWild() {
		g.choosing = a.Player
		out.Prompt = g.colorPrompt()
		return out, nil
	}

	out.Merge(g.nextTurn())
	return out, nil
}

func (g *Game) colorPrompt() *game.Prompt {
	buttons := make([]game.Button, len(deck.Colors))
	for i, c := range deck.Colors {
		b := game.NewButton(c.String(), game.ActionColor, game.StylePrimary)
		b.Arg = strings.ToLower(c.String())
		buttons[i] = b
	}
	return &game.Prompt{
		View:    game.View{Text: "Choose a color!", Buttons: buttons},
		Expires: true,
	}
}

func (g *Game) color(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != Active || g.choosing != a.Player {
		return game.Outcome{}, game.Noticef("You don't have a color to choose.")
	}
	c, err := deck.ParseColor(a.Arg)
	if err != nil || c == deck.Wild {
		return game.Outcome{}, game.Noticef("%s is not a color.", a.Arg)
	}

	g.choosing = ""
	g.Top = deck.UnoCard{Color: c, Value: deck.Blank}

	var out game.Outcome
	out.Announce("%s chose %s.", g.Name(a.Player), c)
	out.Merge(g.nextTurn())
	return out, nil
}

// timeout resolves an unanswered color choice by keeping the previous color.
func (g *Game) timeout(a game.Action) (game.Outcome, error) {
	if g.Ended() || g.state != Active || g.choosing == "" || g.choosing != a.Player {
		return game.Outcome{}, nil
	}
	g.choosing = ""

	var out game.Outcome
	out.Announce("%s didn't choose a color, so it stays %s.", g.Name(a.Player), g.Top.Color)
	out.Merge(g.nextTurn())
	return out, nil
}

func (g *Game) draw(a game.Action) (game.Outcome, error) {
	p, err := g.playing(a)
	if err != nil {
		return game.Outcome{}, err
	}

	var out game.Outcome
	got, err := g.deal(p, 1)
	if err != nil {
		return game.Outcome{}, err
	}
	g.reshuffleNotice(&out)
	if len(got) == 0 {
		out.Announce("There are no cards left to draw, so %s passes.", g.Name(a.Player))
	} else {
		out.Reply = fmt.Sprintf("You drew a %s.", got[0])
		out.Announce("%s drew a card.", g.Name(a.Player))
	}
	out.Merge(g.nextTurn())
	return out, nil
}

func (g *Game) hand(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != Active {
		return game.Outcome{}, game.Noticef("The game hasn't started yet.")
	}

	p := g.Get(a.Player)
	myTurn := g.Current == a.Player && g.choosing == ""
	buttons := make([]game.Button, 0, len(p.Hand)+1)
	for _, c := range p.Hand {
		b := game.NewButton(c.String(), game.ActionPlay, cardStyle(c))
		b.Arg = c.Code()
		b.Enabled = myTurn && g.Playable(c)
		buttons = append(buttons, b)
	}
	drawButton := game.NewButton("Draw", game.ActionDraw, game.StyleSecondary)
	drawButton.Enabled = myTurn
	buttons = append(buttons, drawButton)

	text := fmt.Sprintf("Your cards (top card: %s):", g.Top)
	if !myTurn {
		text = fmt.Sprintf("Your cards (top card: %s). It's %s's turn.", g.Top, g.Name(g.Current))
	}
	return game.Outcome{Prompt: &game.Prompt{View: game.View{Text: text, Buttons: buttons}}}, nil
}

func cardStyle(c deck.UnoCard) game.ButtonStyle {
	switch c.Color {
	case deck.Red:
		return game.StyleDanger
	case deck.Green:
		return game.StyleSuccess
	case deck.Blue:
		return game.StylePrimary
	default:
		return game.StyleSecondary
	}
}

func (g *Game) restart(a game.Action) (game.Outcome, error) {
	if err := g.Validate(a.Player, game.InGame); err != nil {
		return game.Outcome{}, err
	}
	if g.state != RoundOver {
		return game.Outcome{}, game.Unavailable()
	}

	for _, id := range g.Order {
		p := g.Get(id)
		p.Hand = nil
		p.Skipped = false
	}
	g.deck = nil
	g.discard = nil
	g.Top = deck.UnoCard{}
	g.turn = 0
	g.state = Joining
	g.Open = true

	var out game.Outcome
	out.Announce("%s wants to play again. Join, leave, or press Start.", g.Name(a.Player))
	return out, nil
}

func (g *Game) Render() game.View {
	var b strings.Builder
	b.WriteString("**Uno**\n")

	state := g.State()
	switch state {
	case Joining:
		b.WriteString("Welcome to this game of Uno. Feel free to join.\n")
	case Active:
		direction := "clockwise"
		if g.Reversed {
			direction = "counter-clockwise"
		}
		fmt.Fprintf(&b, "Top card: %s (%s)\n", g.Top, direction)
	case RoundOver:
		fmt.Fprintf(&b, "%s won the round!\n", g.Name(g.winner))
	}

	b.WriteString(g.Roster(func(_ game.PlayerID, p *Player) string {
		if state == Joining {
			return ""
		}
		if len(p.Hand) == 1 {
			return "1 card"
		}
		return fmt.Sprintf("%d cards", len(p.Hand))
	}))
	b.WriteByte('\n')

	var buttons []game.Button
	switch state {
	case Joining:
		start := game.NewButton("Start Game", game.ActionStart, game.StylePrimary)
		start.Enabled = g.Len() >= minPlayers
		buttons = []game.Button{
			game.NewButton("Join", game.ActionJoin, game.StyleSuccess),
			game.NewButton("Leave", game.ActionLeave, game.StyleDanger),
			start,
			game.NewButton("End Game", game.ActionEnd, game.StyleDanger),
		}
	case Active:
		fmt.Fprintf(&b, "\nIt's %s's turn.", g.Name(g.Current))
		buttons = []game.Button{
			game.NewButton("Show Hand", game.ActionHand, game.StyleSuccess),
			game.NewButton("Draw", game.ActionDraw, game.StylePrimary),
		}
	case RoundOver:
		buttons = []game.Button{
			game.NewButton("Play Again", game.ActionRestart, game.StyleSuccess),
			game.NewButton("End Game", game.ActionEnd, game.StyleDanger),
		}
	case Ended:
		b.WriteString("\n" + game.MsgEnded)
	}

	return game.View{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}
