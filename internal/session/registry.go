// Package session owns the games running in each channel: at most one per
// channel, created on request and dropped when it ends.
package session

import (
	"errors"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/gameid"
	"github.com/lox/lantern/internal/randutil"
)

// ErrNoSession is returned for actions in a channel without a game.
var ErrNoSession = errors.New("no game is running in this channel")

// AlreadyActiveError is returned when starting a game in a busy channel.
type AlreadyActiveError struct {
	Channel string
	Kind    game.Kind
}

func (e *AlreadyActiveError) Error() string {
	return "A game has already been started in this channel."
}

// Summary describes a running session for listings.
type Summary struct {
	Channel   string    `json:"channel"`
	SessionID string    `json:"sessionId"`
	Game      string    `json:"game"`
	Players   int       `json:"players"`
	StartedAt time.Time `json:"startedAt"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for prompt timeouts.
func WithClock(clock quartz.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithRand sets the parent RNG every session's RNG is derived from.
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) { r.rng = rng }
}

// WithIDs sets the session ID generator.
func WithIDs(ids *gameid.Generator) Option {
	return func(r *Registry) { r.ids = ids }
}

// Registry maps channels to their sessions.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	publishers []Publisher

	rules  Rules
	clock  quartz.Clock
	rng    *rand.Rand
	ids    *gameid.Generator
	logger *log.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *log.Logger, rules Rules, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		rules:    rules,
		clock:    quartz.NewReal(),
		rng:      randutil.FromSeed(0),
		ids:      gameid.NewGenerator(nil),
		logger:   logger.WithPrefix("session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddPublisher registers a receiver for updates that happen outside any
// request, such as expired prompts and sessions ended by the registry.
func (r *Registry) AddPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers = append(r.publishers, p)
}

func (r *Registry) publish(u Update) {
	r.mu.RLock()
	pubs := append([]Publisher(nil), r.publishers...)
	r.mu.RUnlock()

	for _, p := range pubs {
		p.Publish(u)
	}
}

// Start creates a game in the channel unless one is already running there.
func (r *Registry) Start(channel string, kind game.Kind, starter game.PlayerID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[channel]; ok {
		return nil, &AlreadyActiveError{Channel: channel, Kind: existing.Kind()}
	}

	g, err := r.rules.NewGame(kind, randutil.Derive(r.rng))
	if err != nil {
		return nil, err
	}

	id := r.ids.Generate()
	s := &Session{
		id:        id,
		channel:   channel,
		starter:   starter,
		startedAt: r.clock.Now(),
		game:      g,
		prompts:   make(map[game.PlayerID]*pendingPrompt),
		clock:     r.clock,
		timeout:   r.rules.PromptTimeout,
		logger:    r.logger.With("channel", channel, "game", kind, "session", id),
		publish:   r.publish,
		onEnd:     r.remove,
	}
	r.sessions[channel] = s

	r.logger.Info("Started game", "channel", channel, "game", kind, "session", id, "starter", starter)
	return s, nil
}

// remove drops s if it is still the channel's session.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.channel]; ok && cur == s {
		delete(r.sessions, s.channel)
		r.logger.Info("Game over", "channel", s.channel, "game", s.Kind(), "session", s.id)
	}
}

// Get returns the channel's session.
func (r *Registry) Get(channel string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[channel]
	return s, ok
}

// Handle routes an action to the channel's session.
func (r *Registry) Handle(channel string, a game.Action) (Update, error) {
	s, ok := r.Get(channel)
	if !ok {
		return Update{}, ErrNoSession
	}
	return s.Handle(a)
}

// End terminates the channel's game, if any, and notifies publishers.
func (r *Registry) End(channel string) bool {
	r.mu.Lock()
	s, ok := r.sessions[channel]
	if ok {
		delete(r.sessions, channel)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	u, ended := s.end()
	if ended {
		r.logger.Info("Ended game", "channel", channel, "game", s.Kind(), "session", s.id)
		r.publish(u)
	}
	return true
}

// List returns a summary of every running session, ordered by channel.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Summary{
			Channel:   s.channel,
			SessionID: s.id,
			Game:      s.Kind().String(),
			Players:   s.Players(),
			StartedAt: s.startedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Len returns the number of running sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown ends every session.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	channels := make([]string, 0, len(r.sessions))
	for ch := range r.sessions {
		channels = append(channels, ch)
	}
	r.mu.RUnlock()

	for _, ch := range channels {
		r.End(ch)
	}
	if len(channels) > 0 {
		r.logger.Info("Shut down sessions", "count", len(channels))
	}
}
