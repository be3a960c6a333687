package game

import (
	"fmt"
	"strings"
)

// PlayerID is the opaque platform identity of a player (a Discord user ID, a
// websocket player ID). Games key all state on it and never hold the
// platform's user object.
type PlayerID string

// Kind identifies one of the games a channel can host.
type Kind int

const (
	Counter Kind = iota
	Blackjack
	Poker
	Uno
)

// Kinds lists every game kind.
var Kinds = []Kind{Counter, Blackjack, Poker, Uno}

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Blackjack:
		return "blackjack"
	case Poker:
		return "poker"
	case Uno:
		return "uno"
	default:
		return "unknown"
	}
}

// ParseKind maps a game name to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown game %q", s)
}

// ActionKind names an inbound event.
type ActionKind string

const (
	ActionJoin    ActionKind = "join"
	ActionLeave   ActionKind = "leave"
	ActionStart   ActionKind = "start"
	ActionEnd     ActionKind = "end"
	ActionRestart ActionKind = "restart"
	ActionRefresh ActionKind = "refresh"
	ActionConfirm ActionKind = "confirm"
	ActionCancel  ActionKind = "cancel"
	// ActionTimeout is injected when a private prompt expires unanswered.
	ActionTimeout ActionKind = "timeout"

	// Counter
	ActionHitOrMiss ActionKind = "hit_or_miss"
	ActionIncrement ActionKind = "increment"
	ActionDecrement ActionKind = "decrement"

	// Blackjack
	ActionBet   ActionKind = "bet"
	ActionHit   ActionKind = "hit"
	ActionStand ActionKind = "stand"

	// Poker
	ActionCall     ActionKind = "call"
	ActionRaise    ActionKind = "raise"
	ActionFold     ActionKind = "fold"
	ActionViewHand ActionKind = "view_hand"

	// Uno
	ActionHand  ActionKind = "hand"
	ActionPlay  ActionKind = "play"
	ActionDraw  ActionKind = "draw"
	ActionColor ActionKind = "color"
)

func (k ActionKind) String() string {
	return string(k)
}

// Action is a single "player X invoked Y with argument Z" event.
type Action struct {
	Player PlayerID   `json:"player"`
	Name   string     `json:"name,omitempty"`
	Kind   ActionKind `json:"kind"`
	Arg    string     `json:"arg,omitempty"`
}
