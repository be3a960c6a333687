package game

import (
	"errors"
	"fmt"
)

// Notice is a user error: the action was not legitimate and nothing changed.
// Transports show Message to the actor only.
type Notice struct {
	Message string
}

func (n *Notice) Error() string {
	return n.Message
}

// Noticef builds a *Notice.
func Noticef(format string, args ...any) error {
	return &Notice{Message: fmt.Sprintf(format, args...)}
}

// ErrInvariant marks an internal consistency failure. Games wrap it with
// context; sessions log it and abort the action.
var ErrInvariant = errors.New("game invariant violated")

// Standard notice texts.
const (
	MsgEnded         = "This game has ended."
	MsgNotInGame     = "You are not in this game."
	MsgNotYourTurn   = "It's not your turn."
	MsgAlreadyJoined = "You have already joined this game."
	MsgFull          = "This game is full."
	MsgNotJoinable   = "This game is not accepting new players right now."
	MsgCannotLeave   = "You can't leave in the middle of a round."
	MsgUnavailable   = "That action isn't available right now."
)

// Unavailable returns the notice for an action the current state does not
// accept.
func Unavailable() error {
	return &Notice{Message: MsgUnavailable}
}
