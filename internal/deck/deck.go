package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrEmptyDeck is returned when a draw asks for more cards than the deck
// holds and no replenish policy can supply them.
var ErrEmptyDeck = errors.New("deck is empty")

// Deck is an ordered pile of cards drawn from the top (index 0).
type Deck[C any] struct {
	cards     []C
	rng       *rand.Rand
	replenish func() []C
}

// Option configures a Deck.
type Option[C any] func(*Deck[C])

// WithReplenish installs a refill policy consulted whenever the deck runs
// out mid-draw. The returned cards are shuffled into the deck.
func WithReplenish[C any](fn func() []C) Option[C] {
	return func(d *Deck[C]) {
		d.replenish = fn
	}
}

// New builds a deck from cards in the given order. The slice is copied. A
// nil rng leaves Shuffle as a no-op, which tests use to stack a deck.
func New[C any](cards []C, rng *rand.Rand, opts ...Option[C]) *Deck[C] {
	d := &Deck[C]{
		cards: append([]C(nil), cards...),
		rng:   rng,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// StandardCards returns the 52 cards of a standard deck, unshuffled.
func StandardCards() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// NewStandardDeck returns a shuffled 52-card deck.
func NewStandardDeck(rng *rand.Rand, opts ...Option[Card]) *Deck[Card] {
	d := New(StandardCards(), rng, opts...)
	d.Shuffle()
	return d
}

// NewUnoDeck returns a shuffled 108-card Uno deck.
func NewUnoDeck(rng *rand.Rand, opts ...Option[UnoCard]) *Deck[UnoCard] {
	d := New(UnoCards(), rng, opts...)
	d.Shuffle()
	return d
}

// Shuffle randomizes the order of cards in the deck (Fisher-Yates).
func (d *Deck[C]) Shuffle() {
	if d.rng == nil {
		return
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns n cards from the top. Without a replenish policy
// the deck is left untouched when it cannot satisfy the whole draw.
func (d *Deck[C]) Draw(n int) ([]C, error) {
	if d.replenish == nil && n > len(d.cards) {
		return nil, ErrEmptyDeck
	}

	drawn := make([]C, 0, n)
	for range n {
		c, err := d.drawOne()
		if err != nil {
			return drawn, err
		}
		drawn = append(drawn, c)
	}
	return drawn, nil
}

// DrawOne removes and returns the top card.
func (d *Deck[C]) DrawOne() (C, error) {
	if d.replenish == nil && len(d.cards) == 0 {
		var zero C
		return zero, ErrEmptyDeck
	}
	return d.drawOne()
}

func (d *Deck[C]) drawOne() (C, error) {
	if len(d.cards) == 0 && d.replenish != nil {
		d.cards = append(d.cards, d.replenish()...)
		d.Shuffle()
	}
	if len(d.cards) == 0 {
		var zero C
		return zero, ErrEmptyDeck
	}

	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, nil
}

// Len returns the number of cards left in the deck
func (d *Deck[C]) Len() int {
	return len(d.cards)
}

// Peek returns the top card without removing it from the deck
func (d *Deck[C]) Peek() (C, bool) {
	if len(d.cards) == 0 {
		var zero C
		return zero, false
	}
	return d.cards[0], true
}

// PutBottom returns cards to the bottom of the deck.
func (d *Deck[C]) PutBottom(cards ...C) {
	d.cards = append(d.cards, cards...)
}
