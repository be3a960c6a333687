package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an Uno card color. Wild cards carry the Wild color until played.
type Color int

const (
	Red Color = iota
	Blue
	Green
	Yellow
	Wild
)

// Colors lists the four playable colors in display order.
var Colors = []Color{Red, Blue, Green, Yellow}

func (c Color) String() string {
	switch c {
	case Red:
		return "Red"
	case Blue:
		return "Blue"
	case Green:
		return "Green"
	case Yellow:
		return "Yellow"
	case Wild:
		return "Wild"
	default:
		return "?"
	}
}

// ParseColor accepts a color name in any case.
func ParseColor(s string) (Color, error) {
	for _, c := range append(Colors, Wild) {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid color %q", s)
}

// Value is the face of an Uno card. Number cards use 0-9 directly.
type Value int

const (
	Skip Value = iota + 10
	Reverse
	DrawTwo
	WildCard
	WildDrawFour
	// Blank is the face of the placeholder top card left after a Wild is
	// played: it only carries the chosen color.
	Blank
)

// IsNumber reports whether v is one of 0-9.
func (v Value) IsNumber() bool {
	return v >= 0 && v <= 9
}

// IsAction reports whether v is a Skip, Reverse, or draw card, or any wild.
func (v Value) IsAction() bool {
	return v >= Skip && v <= WildDrawFour
}

func (v Value) String() string {
	switch {
	case v.IsNumber():
		return strconv.Itoa(int(v))
	case v == Skip:
		return "Skip"
	case v == Reverse:
		return "Reverse"
	case v == DrawTwo:
		return "Draw Two"
	case v == WildCard:
		return "Wild"
	case v == WildDrawFour:
		return "Draw Four"
	case v == Blank:
		return "Card"
	default:
		return "?"
	}
}

// UnoCard is a single Uno card.
type UnoCard struct {
	Color Color
	Value Value
}

// IsWild reports whether the card lets the player pick a color.
func (c UnoCard) IsWild() bool {
	return c.Value == WildCard || c.Value == WildDrawFour
}

func (c UnoCard) String() string {
	if c.Value == WildCard {
		return "Wild"
	}
	if c.Value == WildDrawFour {
		return "Wild Draw Four"
	}
	return c.Color.String() + " " + c.Value.String()
}

// Priority orders cards within a hand: grouped by color, then wilds last.
func (c UnoCard) Priority() int {
	base := map[Color]int{Red: 0, Blue: 15, Green: 30, Yellow: 45, Wild: 60}[c.Color]
	switch c.Value {
	case Reverse:
		return base + 11
	case Skip:
		return base + 12
	case DrawTwo:
		return base + 13
	case WildCard:
		return base + 1
	case WildDrawFour:
		return base + 2
	default:
		return base + int(c.Value)
	}
}

var valueCodes = map[Value]string{
	Skip:         "skip",
	Reverse:      "reverse",
	DrawTwo:      "draw2",
	WildCard:     "wild",
	WildDrawFour: "draw4",
	Blank:        "blank",
}

// Code returns a stable identifier for wire payloads, e.g. "red-7" or
// "wild-draw4".
func (c UnoCard) Code() string {
	v, ok := valueCodes[c.Value]
	if !ok {
		v = strconv.Itoa(int(c.Value))
	}
	return strings.ToLower(c.Color.String()) + "-" + v
}

// ParseUnoCard is the inverse of Code.
func ParseUnoCard(code string) (UnoCard, error) {
	colorPart, valuePart, ok := strings.Cut(code, "-")
	if !ok {
		return UnoCard{}, fmt.Errorf("invalid uno card %q", code)
	}

	color, err := ParseColor(colorPart)
	if err != nil {
		return UnoCard{}, err
	}

	for v, s := range valueCodes {
		if s == valuePart {
			return UnoCard{Color: color, Value: v}, nil
		}
	}

	n, err := strconv.Atoi(valuePart)
	if err != nil || n < 0 || n > 9 {
		return UnoCard{}, fmt.Errorf("invalid uno card value %q", valuePart)
	}
	return UnoCard{Color: color, Value: Value(n)}, nil
}

// UnoCards returns the 108 cards of an Uno deck in generation order.
func UnoCards() []UnoCard {
	cards := make([]UnoCard, 0, 108)
	for _, color := range Colors {
		cards = append(cards, UnoCard{Color: color, Value: 0})
		for range 2 {
			for v := Value(1); v <= 9; v++ {
				cards = append(cards, UnoCard{Color: color, Value: v})
			}
			cards = append(cards,
				UnoCard{Color: color, Value: DrawTwo},
				UnoCard{Color: color, Value: Reverse},
				UnoCard{Color: color, Value: Skip},
			)
		}
	}
	for range 4 {
		cards = append(cards,
			UnoCard{Color: Wild, Value: WildCard},
			UnoCard{Color: Wild, Value: WildDrawFour},
		)
	}
	return cards
}
