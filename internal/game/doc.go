// Package game holds the pieces shared by every channel game: player
// identities, the inbound Action event, the outbound View, the Notice type for
// user-facing rejections, and Table, the roster and membership state each
// game embeds.
//
// # Games
//
// Each game lives in its own package (counter, blackjack, holdem, uno) and
// implements Game. A game is a plain state machine: it never performs I/O and
// it is not safe for concurrent use. The session package wraps every game in
// a mutex and routes actions to it.
//
// # Handling Actions
//
//	out, err := g.Handle(game.Action{Player: "123", Name: "alice", Kind: game.ActionJoin})
//	var notice *game.Notice
//	switch {
//	case errors.As(err, &notice):
//	    // show notice.Message to the player only
//	case err != nil:
//	    // invariant violation: log it
//	}
//	view := g.Render()
//
// Outcome carries what the transport should say: public announcements, a
// private reply for the actor, and optionally a private Prompt the actor must
// answer. Prompts marked Expires are answered with ActionTimeout if the
// player never responds; games treat that as abstention.
package game
