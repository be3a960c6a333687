package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/lantern/internal/game"
)

const customIDPrefix = "lantern"

// inputArg marks a button whose argument is collected with a modal.
const inputArg = "?"

// EncodeCustomID builds the custom ID for a button. Discord requires IDs to
// be unique within a message, so the button's position is appended when
// n > 0.
func EncodeCustomID(kind game.ActionKind, arg string, n int) string {
	id := customIDPrefix + ":" + string(kind) + ":" + arg
	if n > 0 {
		id += "#" + strconv.Itoa(n)
	}
	return id
}

// DecodeCustomID splits a custom ID produced by EncodeCustomID.
func DecodeCustomID(id string) (game.ActionKind, string, error) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[1] == "" {
		return "", "", fmt.Errorf("not a lantern custom ID: %q", id)
	}
	arg := parts[2]
	if i := strings.LastIndexByte(arg, '#'); i >= 0 {
		arg = arg[:i]
	}
	return game.ActionKind(parts[1]), arg, nil
}
