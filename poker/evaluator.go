package poker

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/lox/lantern/internal/deck"
)

// Category enumerates poker hand classes from weakest to strongest.
type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// radix is the number of distinct ranks; each tiebreak digit is a rank index
// in 2..A.
const radix = 13

// categoryWeight is radix^5, the place value of the category digit.
const categoryWeight = radix * radix * radix * radix * radix

// HandValue is a totally ordered encoding of a five-card hand: a larger value
// is a stronger hand and equal values are true ties. The most significant
// base-13 digit is the category, followed by up to five tiebreak ranks.
type HandValue int

// Category returns the hand class encoded in v.
func (v HandValue) Category() Category {
	return Category(int(v) / categoryWeight)
}

// Ranks returns the five tiebreak ranks in priority order. Unused trailing
// digits decode as Two.
func (v HandValue) Ranks() [5]deck.Rank {
	var out [5]deck.Rank
	rest := int(v) % categoryWeight
	for i := 4; i >= 0; i-- {
		out[i] = deck.Two + deck.Rank(rest%radix)
		rest /= radix
	}
	return out
}

// String describes the hand, e.g. "Full House, Kings over Tens".
func (v HandValue) String() string {
	r := v.Ranks()
	switch cat := v.Category(); cat {
	case HighCard:
		return fmt.Sprintf("High Card, %s", rankName(r[0]))
	case OnePair:
		return fmt.Sprintf("Pair of %s", rankPlural(r[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", rankPlural(r[0]), rankPlural(r[1]))
	case ThreeOfAKind:
		return fmt.Sprintf("Three %s", rankPlural(r[0]))
	case Straight, StraightFlush:
		return fmt.Sprintf("%s, %s high", cat, rankName(r[0]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankName(r[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", rankPlural(r[0]), rankPlural(r[1]))
	case FourOfAKind:
		return fmt.Sprintf("Four %s", rankPlural(r[0]))
	default:
		return cat.String()
	}
}

// InvalidHandSizeError reports a hand, pocket, or board of the wrong size.
type InvalidHandSizeError struct {
	Part string
	Got  int
	Want string
}

func (e *InvalidHandSizeError) Error() string {
	return fmt.Sprintf("invalid %s size: got %d cards, want %s", e.Part, e.Got, e.Want)
}

// ErrDuplicateCard is returned when the same card appears twice in a hand.
var ErrDuplicateCard = errors.New("duplicate card in hand")

// ErrInvalidCard is returned for a card whose rank is outside 2..A.
var ErrInvalidCard = errors.New("invalid card")

func encode(cat Category, ranks ...deck.Rank) HandValue {
	v := int(cat)
	for i := 0; i < 5; i++ {
		v *= radix
		if i < len(ranks) {
			v += ranks[i].Index()
		}
	}
	return HandValue(v)
}

// RankFive classifies exactly five cards.
//
// The ace-low straight (A-2-3-4-5) is encoded with Five as its high card so
// it sorts below a six-high straight; the same holds for the ace-low straight
// flush.
func RankFive(cards []deck.Card) (HandValue, error) {
	if len(cards) != 5 {
		return 0, &InvalidHandSizeError{Part: "hand", Got: len(cards), Want: "5"}
	}

	var counts [15]int
	seen := make(map[deck.Card]bool, 5)
	flush := true
	for i, c := range cards {
		if seen[c] {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		if c.Rank < deck.Two || c.Rank > deck.Ace {
			return 0, fmt.Errorf("%w: rank %d", ErrInvalidCard, int(c.Rank))
		}
		seen[c] = true
		counts[c.Rank]++
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}

	// groups ordered by count, then rank, both descending
	type group struct {
		rank  deck.Rank
		count int
	}
	groups := make([]group, 0, 5)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, group{rank: r, count: counts[r]})
		}
	}
	slices.SortStableFunc(groups, func(a, b group) int {
		return b.count - a.count
	})

	ranks := make([]deck.Rank, len(groups))
	for i, g := range groups {
		ranks[i] = g.rank
	}

	straightHigh, straight := straightHighCard(ranks)

	switch {
	case straight && flush && straightHigh == deck.Ace:
		return encode(RoyalFlush, deck.Ace), nil
	case straight && flush:
		return encode(StraightFlush, straightHigh), nil
	case groups[0].count == 4:
		return encode(FourOfAKind, ranks...), nil
	case groups[0].count == 3 && groups[1].count == 2:
		return encode(FullHouse, ranks...), nil
	case flush:
		return encode(Flush, ranks...), nil
	case straight:
		return encode(Straight, straightHigh), nil
	case groups[0].count == 3:
		return encode(ThreeOfAKind, ranks...), nil
	case groups[0].count == 2 && groups[1].count == 2:
		return encode(TwoPair, ranks...), nil
	case groups[0].count == 2:
		return encode(OnePair, ranks...), nil
	default:
		return encode(HighCard, ranks...), nil
	}
}

// straightHighCard expects five distinct ranks in descending order.
func straightHighCard(ranks []deck.Rank) (deck.Rank, bool) {
	if len(ranks) != 5 {
		return 0, false
	}
	if ranks[0]-ranks[4] == 4 {
		return ranks[0], true
	}
	if ranks[0] == deck.Ace && ranks[1] == deck.Five && ranks[4] == deck.Two {
		return deck.Five, true
	}
	return 0, false
}

// BestOf returns the strongest five-card hand that can be made from a
// two-card pocket and a three to five card board.
func BestOf(pocket, board []deck.Card) (HandValue, error) {
	if len(pocket) != 2 {
		return 0, &InvalidHandSizeError{Part: "pocket", Got: len(pocket), Want: "2"}
	}
	if len(board) < 3 || len(board) > 5 {
		return 0, &InvalidHandSizeError{Part: "board", Got: len(board), Want: "3 to 5"}
	}

	all := make([]deck.Card, 0, 7)
	all = append(all, pocket...)
	all = append(all, board...)

	best := HandValue(-1)
	hand := make([]deck.Card, 5)
	for mask := uint(0); mask < 1<<len(all); mask++ {
		if bits.OnesCount(mask) != 5 {
			continue
		}
		hand = hand[:0]
		for i, c := range all {
			if mask&(1<<i) != 0 {
				hand = append(hand, c)
			}
		}
		v, err := RankFive(hand)
		if err != nil {
			return 0, err
		}
		if v > best {
			best = v
		}
	}
	return best, nil
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 for a tie.
func Compare(a, b HandValue) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func rankName(r deck.Rank) string {
	switch r {
	case deck.Jack:
		return "Jack"
	case deck.Queen:
		return "Queen"
	case deck.King:
		return "King"
	case deck.Ace:
		return "Ace"
	case deck.Ten:
		return "Ten"
	default:
		return r.String()
	}
}

func rankPlural(r deck.Rank) string {
	if r == deck.Six {
		return "Sixes"
	}
	return rankName(r) + "s"
}
