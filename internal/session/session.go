package session

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/lantern/internal/game"
)

// Update is the result of one handled action, ready for a transport to
// deliver: Outcome goes to the actor and the channel, View replaces the
// channel's menu.
type Update struct {
	Channel   string
	SessionID string
	Kind      game.Kind
	Actor     game.PlayerID
	Action    game.ActionKind
	Outcome   game.Outcome
	View      game.View
	Ended     bool
	// Timeout marks updates produced by an expired prompt rather than by a
	// player pressing something.
	Timeout bool
}

// Publisher receives updates that no request is waiting for, such as prompt
// expiries.
type Publisher interface {
	Publish(Update)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Update)

func (f PublisherFunc) Publish(u Update) { f(u) }

type pendingPrompt struct {
	gen   uint64
	timer *quartz.Timer
}

// Session is one game hosted in one channel. All actions run to completion
// under its mutex.
type Session struct {
	id        string
	channel   string
	starter   game.PlayerID
	startedAt time.Time

	mu      sync.Mutex
	game    game.Game
	prompts map[game.PlayerID]*pendingPrompt
	gen     uint64
	closed  bool

	clock   quartz.Clock
	timeout time.Duration
	logger  *log.Logger
	publish func(Update)
	onEnd   func(*Session)
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Channel() string        { return s.channel }
func (s *Session) Kind() game.Kind        { return s.game.Kind() }
func (s *Session) Starter() game.PlayerID { return s.starter }
func (s *Session) StartedAt() time.Time   { return s.startedAt }

// View renders the current state.
func (s *Session) View() game.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Render()
}

// Players returns the number of seated players.
func (s *Session) Players() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Len()
}

// Handle applies one action. Notices come back as *game.Notice; anything else
// is an internal failure that has already been logged.
func (s *Session) Handle(a game.Action) (Update, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Update{}, game.Noticef(game.MsgEnded)
	}
	if a.Kind != game.ActionTimeout {
		s.disarm(a.Player)
	}

	u, err := s.apply(a)
	ended := u.Ended
	s.mu.Unlock()

	if err != nil {
		return Update{}, err
	}
	if ended && s.onEnd != nil {
		s.onEnd(s)
	}
	return u, nil
}

// apply runs the action against the game. Callers hold s.mu.
func (s *Session) apply(a game.Action) (Update, error) {
	out, err := s.game.Handle(a)
	if err != nil {
		var n *game.Notice
		if !errors.As(err, &n) {
			s.logger.Error("Action failed", "player", a.Player, "action", a.Kind, "error", err)
		}
		return Update{}, err
	}

	if out.Prompt != nil && out.Prompt.Expires {
		s.arm(a.Player)
	}

	ended := out.Ended || s.game.Ended()
	view := s.game.Render()
	if ended {
		s.close()
		view = view.Detached()
	}

	s.logger.Debug("Handled action", "player", a.Player, "action", a.Kind, "ended", ended)
	return Update{
		Channel:   s.channel,
		SessionID: s.id,
		Kind:      s.game.Kind(),
		Actor:     a.Player,
		Action:    a.Kind,
		Outcome:   out,
		View:      view,
		Ended:     ended,
		Timeout:   a.Kind == game.ActionTimeout,
	}, nil
}

// arm starts the expiry timer for the player's prompt, replacing any older
// one. Callers hold s.mu.
func (s *Session) arm(player game.PlayerID) {
	if s.timeout <= 0 {
		return
	}
	s.disarm(player)

	s.gen++
	gen := s.gen
	p := &pendingPrompt{gen: gen}
	p.timer = s.clock.AfterFunc(s.timeout, func() {
		s.expire(player, gen)
	}, "session", "prompt")
	s.prompts[player] = p
}

// disarm cancels the player's pending prompt timer. Callers hold s.mu.
func (s *Session) disarm(player game.PlayerID) {
	if p, ok := s.prompts[player]; ok {
		p.timer.Stop()
		delete(s.prompts, player)
	}
}

// expire injects the timeout action for a prompt that went unanswered.
func (s *Session) expire(player game.PlayerID, gen uint64) {
	s.mu.Lock()
	p, ok := s.prompts[player]
	if s.closed || !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.prompts, player)

	s.logger.Debug("Prompt expired", "player", player)
	u, err := s.apply(game.Action{Player: player, Kind: game.ActionTimeout})
	s.mu.Unlock()

	if err != nil {
		return
	}
	if u.Ended && s.onEnd != nil {
		s.onEnd(s)
	}
	if s.publish != nil {
		s.publish(u)
	}
}

// close stops every timer. Callers hold s.mu.
func (s *Session) close() {
	s.closed = true
	for id := range s.prompts {
		s.disarm(id)
	}
}

// end terminates the game from outside, for example when the registry drops
// the channel. It reports false if the session was already over.
func (s *Session) end() (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Update{}, false
	}
	s.game.End()
	s.close()
	return Update{
		Channel:   s.channel,
		SessionID: s.id,
		Kind:      s.game.Kind(),
		View:      s.game.Render().Detached(),
		Ended:     true,
	}, true
}
