package game

import (
	"fmt"
	"strings"
)

// Check selects what Validate verifies.
type Check uint8

const (
	NotEnded Check = 1 << iota
	InGame
	OnTurn
)

// Table is the roster and membership state embedded by every game. P is the
// game's per-player data.
type Table[P any] struct {
	Players map[PlayerID]*P
	// Order is the turn order. It is distinct from map iteration order.
	Order []PlayerID
	// MaxPlayers caps the roster; zero means no limit.
	MaxPlayers int
	// Open reports whether players may join or leave.
	Open bool
	// Current is the player whose turn it is, empty when nobody's.
	Current PlayerID

	names map[PlayerID]string
	ended bool
}

// NewTable returns an empty table that is open for joining.
func NewTable[P any](maxPlayers int) Table[P] {
	return Table[P]{
		Players:    make(map[PlayerID]*P),
		MaxPlayers: maxPlayers,
		Open:       true,
		names:      make(map[PlayerID]string),
	}
}

// AddPlayer seats a player with its initial data.
func (t *Table[P]) AddPlayer(id PlayerID, name string, data *P) error {
	switch {
	case t.ended:
		return Noticef(MsgEnded)
	case !t.Open:
		return Noticef(MsgNotJoinable)
	case t.Has(id):
		return Noticef(MsgAlreadyJoined)
	case t.MaxPlayers > 0 && len(t.Order) >= t.MaxPlayers:
		return Noticef(MsgFull)
	}

	t.Players[id] = data
	t.Order = append(t.Order, id)
	if name != "" {
		t.names[id] = name
	}
	return nil
}

// RemovePlayer unseats a player. It reports whether the roster is now empty.
func (t *Table[P]) RemovePlayer(id PlayerID) (bool, error) {
	if !t.ended && !t.Open {
		return false, Noticef(MsgCannotLeave)
	}
	if !t.Has(id) {
		return false, Noticef(MsgNotInGame)
	}

	delete(t.Players, id)
	for i, pid := range t.Order {
		if pid == id {
			t.Order = append(t.Order[:i], t.Order[i+1:]...)
			break
		}
	}
	if t.Current == id {
		t.Current = ""
	}
	return len(t.Order) == 0, nil
}

// Join handles ActionJoin with the given starting data.
func (t *Table[P]) Join(a Action, data *P) (Outcome, error) {
	if err := t.AddPlayer(a.Player, a.Name, data); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	out.Announce("%s joined the game.", t.Name(a.Player))
	return out, nil
}

// Leave handles ActionLeave; the last player leaving ends the game.
func (t *Table[P]) Leave(a Action) (Outcome, error) {
	name := t.Name(a.Player)
	empty, err := t.RemovePlayer(a.Player)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	out.Announce("%s left the game.", name)
	if empty {
		t.End()
		out.Ended = true
		out.Announce("Everyone has left, so the game is over.")
	}
	return out, nil
}

// Finish handles ActionEnd.
func (t *Table[P]) Finish(a Action) (Outcome, error) {
	if !t.End() {
		return Outcome{}, Noticef(MsgEnded)
	}
	var out Outcome
	out.Ended = true
	out.Announce("%s ended the game.", t.Name(a.Player))
	return out, nil
}

// Validate is the single check every handler runs before mutating state.
func (t *Table[P]) Validate(id PlayerID, checks Check) error {
	if checks&NotEnded != 0 && t.ended {
		return Noticef(MsgEnded)
	}
	if checks&InGame != 0 && !t.Has(id) {
		return Noticef(MsgNotInGame)
	}
	if checks&OnTurn != 0 && t.Current != id {
		return Noticef(MsgNotYourTurn)
	}
	return nil
}

// Has reports whether id is seated.
func (t *Table[P]) Has(id PlayerID) bool {
	_, ok := t.Players[id]
	return ok
}

// Get returns the player's data or nil.
func (t *Table[P]) Get(id PlayerID) *P {
	return t.Players[id]
}

// Name returns the display label recorded at join, falling back to the ID.
func (t *Table[P]) Name(id PlayerID) string {
	if n, ok := t.names[id]; ok {
		return n
	}
	return string(id)
}

// Len returns the number of seated players.
func (t *Table[P]) Len() int {
	return len(t.Order)
}

// Ended reports whether the game reached its terminal state.
func (t *Table[P]) Ended() bool {
	return t.ended
}

// End moves the game to its terminal state. It reports false if the game had
// already ended.
func (t *Table[P]) End() bool {
	if t.ended {
		return false
	}
	t.ended = true
	t.Open = false
	t.Current = ""
	return true
}

// Each visits players in turn order.
func (t *Table[P]) Each(fn func(id PlayerID, p *P)) {
	for _, id := range t.Order {
		fn(id, t.Players[id])
	}
}

// Roster renders one line per player using describe for the detail.
func (t *Table[P]) Roster(describe func(id PlayerID, p *P) string) string {
	if len(t.Order) == 0 {
		return "No players yet."
	}
	var b strings.Builder
	for _, id := range t.Order {
		marker := "  "
		if id == t.Current {
			marker = "▶ "
		}
		fmt.Fprintf(&b, "%s%s", marker, t.Name(id))
		if describe != nil {
			if d := describe(id, t.Players[id]); d != "" {
				fmt.Fprintf(&b, ": %s", d)
			}
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
