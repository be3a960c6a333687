package deck

import (
	"errors"
	"testing"

	"github.com/lox/lantern/internal/randutil"
)

func TestStandardDeckComposition(t *testing.T) {
	t.Parallel()

	d := NewStandardDeck(randutil.New(1))
	if d.Len() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Len())
	}

	cards, err := d.Draw(52)
	if err != nil {
		t.Fatalf("Draw(52) failed: %v", err)
	}

	seen := make(map[Card]bool)
	for _, c := range cards {
		if seen[c] {
			t.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}
	if d.Len() != 0 {
		t.Errorf("expected empty deck, got %d", d.Len())
	}
}

func TestUnoDeckComposition(t *testing.T) {
	t.Parallel()

	cards := UnoCards()
	if len(cards) != 108 {
		t.Fatalf("expected 108 cards, got %d", len(cards))
	}

	counts := make(map[UnoCard]int)
	for _, c := range cards {
		counts[c]++
	}

	for _, color := range Colors {
		if n := counts[UnoCard{Color: color, Value: 0}]; n != 1 {
			t.Errorf("%s 0: expected 1, got %d", color, n)
		}
		for v := Value(1); v <= 9; v++ {
			if n := counts[UnoCard{Color: color, Value: v}]; n != 2 {
				t.Errorf("%s %s: expected 2, got %d", color, v, n)
			}
		}
		for _, v := range []Value{Skip, Reverse, DrawTwo} {
			if n := counts[UnoCard{Color: color, Value: v}]; n != 2 {
				t.Errorf("%s %s: expected 2, got %d", color, v, n)
			}
		}
	}
	if n := counts[UnoCard{Color: Wild, Value: WildCard}]; n != 4 {
		t.Errorf("wild: expected 4, got %d", n)
	}
	if n := counts[UnoCard{Color: Wild, Value: WildDrawFour}]; n != 4 {
		t.Errorf("wild draw four: expected 4, got %d", n)
	}

	if d := NewUnoDeck(randutil.New(7)); d.Len() != 108 {
		t.Errorf("NewUnoDeck: expected 108 cards, got %d", d.Len())
	}
}

func TestDrawWithoutReplenish(t *testing.T) {
	t.Parallel()

	d := New(MustParseCards("AsKsQs"), nil)

	top, err := d.Draw(2)
	if err != nil {
		t.Fatalf("Draw(2) failed: %v", err)
	}
	if !cardsEqual(top, MustParseCards("AsKs")) {
		t.Errorf("Draw(2) = %v, want As Ks", top)
	}

	if _, err := d.Draw(2); !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("expected ErrEmptyDeck, got %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("failed draw should not consume cards, %d left", d.Len())
	}

	if _, err := d.DrawOne(); err != nil {
		t.Errorf("DrawOne failed: %v", err)
	}
	if _, err := d.DrawOne(); !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("expected ErrEmptyDeck, got %v", err)
	}
}

func TestDrawReplenishesOneCardAtATime(t *testing.T) {
	t.Parallel()

	discard := []UnoCard{{Color: Red, Value: 5}, {Color: Blue, Value: 6}}
	refills := 0
	d := New([]UnoCard{{Color: Green, Value: 1}}, randutil.New(3), WithReplenish(func() []UnoCard {
		refills++
		out := discard
		discard = nil
		return out
	}))

	drawn, err := d.Draw(3)
	if err != nil {
		t.Fatalf("Draw(3) failed: %v", err)
	}
	if len(drawn) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(drawn))
	}
	if drawn[0] != (UnoCard{Color: Green, Value: 1}) {
		t.Errorf("first card should come from the deck, got %v", drawn[0])
	}
	if refills != 1 {
		t.Errorf("expected a single refill, got %d", refills)
	}

	if _, err := d.Draw(1); !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("expected ErrEmptyDeck once discard is exhausted, got %v", err)
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	a, _ := NewStandardDeck(randutil.New(42)).Draw(52)
	b, _ := NewStandardDeck(randutil.New(42)).Draw(52)
	c, _ := NewStandardDeck(randutil.New(43)).Draw(52)

	if !cardsEqual(a, b) {
		t.Error("same seed should produce the same order")
	}
	if cardsEqual(a, c) {
		t.Error("different seeds should produce different orders")
	}
}

func TestUnoCardCodes(t *testing.T) {
	t.Parallel()

	for _, c := range UnoCards() {
		got, err := ParseUnoCard(c.Code())
		if err != nil {
			t.Fatalf("ParseUnoCard(%q) failed: %v", c.Code(), err)
		}
		if got != c {
			t.Fatalf("ParseUnoCard(%q) = %v, want %v", c.Code(), got, c)
		}
	}

	for _, bad := range []string{"red", "purple-3", "red-12", "blue-x"} {
		if _, err := ParseUnoCard(bad); err == nil {
			t.Errorf("ParseUnoCard(%q) should fail", bad)
		}
	}
}

func TestUnoPriority(t *testing.T) {
	t.Parallel()

	red9 := UnoCard{Color: Red, Value: 9}
	redSkip := UnoCard{Color: Red, Value: Skip}
	blue0 := UnoCard{Color: Blue, Value: 0}
	wild := UnoCard{Color: Wild, Value: WildCard}

	if !(red9.Priority() < redSkip.Priority() &&
		redSkip.Priority() < blue0.Priority() &&
		blue0.Priority() < wild.Priority()) {
		t.Errorf("unexpected priority order: %d %d %d %d",
			red9.Priority(), redSkip.Priority(), blue0.Priority(), wild.Priority())
	}
}
