package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/lantern/internal/auth"
	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/session"
)

// Server exposes the session registry over websockets. Each websocket
// "channel" is a free-form name; any client may subscribe to it.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	registry    *session.Registry
	validator   auth.Validator
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithValidator checks auth tokens against v instead of trusting the
// player ID a client sends.
func WithValidator(v auth.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// NewServer creates a server for the registry and subscribes it to the
// registry's out-of-band updates.
func NewServer(addr string, registry *session.Registry, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		registry:    registry,
		validator:   auth.NewNoopValidator(),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	registry.AddPublisher(s)
	go s.run()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Serve listens until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = s.Stop()
	}()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return nil
}

func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "player", conn.Player(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s, s.logger)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = conn.Close()
		return
	}
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// broadcast sends a message to every connection subscribed to channel.
func (s *Server) broadcast(channel string, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		s.logger.Error("Failed to encode message", "type", messageType, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.Subscribed(channel) {
			if err := conn.SendMessage(msg); err == nil {
				count++
			}
		}
	}
	s.logger.Debug("Broadcast", "channel", channel, "type", messageType, "recipients", count)
}

// sendToPlayer delivers a private message to every connection the player has
// open.
func (s *Server) sendToPlayer(player game.PlayerID, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		s.logger.Error("Failed to encode message", "type", messageType, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.Player() == player {
			_ = conn.SendMessage(msg)
		}
	}
}

// deliver fans an update out: public parts to the channel's subscribers,
// private parts to the actor. actor may be nil when the update did not come
// from a request.
func (s *Server) deliver(u session.Update, actor *Connection) {
	for _, a := range u.Outcome.Announcements {
		s.broadcast(u.Channel, MessageTypeAnnouncement, AnnouncementData{Channel: u.Channel, Message: a})
	}
	s.broadcast(u.Channel, MessageTypeState, StateFromUpdate(u))

	private := func(messageType MessageType, data any) {
		if actor != nil {
			actor.emit(messageType, data)
			return
		}
		if u.Actor != "" {
			s.sendToPlayer(u.Actor, messageType, data)
		}
	}
	if u.Outcome.Reply != "" {
		private(MessageTypeNotice, NoticeData{Channel: u.Channel, Message: u.Outcome.Reply})
	}
	if p, ok := PromptFromOutcome(u.Channel, u.Outcome); ok {
		private(MessageTypePrompt, p)
	}

	if u.Ended {
		s.broadcast(u.Channel, MessageTypeGameEnded, GameEndedData{Channel: u.Channel, SessionID: u.SessionID})
	}
}

// Publish implements session.Publisher for expired prompts and sessions
// ended outside a request.
func (s *Server) Publish(u session.Update) {
	s.deliver(u, nil)
}

// ConnectedPlayers returns the authenticated players with an open
// connection.
func (s *Server) ConnectedPlayers() []game.PlayerID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []game.PlayerID
	for conn := range s.connections {
		if id := conn.Player(); id != "" {
			players = append(players, id)
		}
	}
	return players
}
