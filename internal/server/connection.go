package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/lantern/internal/auth"
	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/session"
)

// Connection is one websocket client. It acts for a single player once
// authenticated and receives updates for the channels it subscribed to.
type Connection struct {
	conn       *websocket.Conn
	send       chan *Message
	playerID   game.PlayerID
	playerName string
	channels   map[string]bool
	server     *Server
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	closeOnce  sync.Once
}

// NewConnection wraps an upgraded websocket.
func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		channels: make(map[string]bool),
		server:   server,
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg without blocking. A client that cannot keep up is
// disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "player", c.Player())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) emit(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to encode message", "type", messageType, "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// Player returns the authenticated player ID, empty before auth.
func (c *Connection) Player() game.PlayerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) identity() (game.PlayerID, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID, c.playerName
}

func (c *Connection) setPlayer(id game.PlayerID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
	c.playerName = name
}

// Subscribe adds channel to the set of channels this client follows.
func (c *Connection) Subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = true
}

// Subscribed reports whether the client follows channel.
func (c *Connection) Subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[channel]
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Player())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ErrCodeInvalidMessage, "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeStartGame:
		var data StartGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ErrCodeInvalidMessage, "Failed to parse start game data")
			return
		}
		c.handleStartGame(data)

	case MessageTypeSubscribe:
		var data SubscribeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ErrCodeInvalidMessage, "Failed to parse subscribe data")
			return
		}
		c.handleSubscribe(data)

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ErrCodeInvalidMessage, "Failed to parse action data")
			return
		}
		c.handleAction(data)

	case MessageTypeListGames:
		c.emit(MessageTypeGameList, GameListData{Games: c.server.registry.List()})

	default:
		c.sendError(ErrCodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) sendError(code, message string) {
	c.emit(MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) handleAuth(data AuthData) {
	id, name := data.PlayerID, data.PlayerName

	identity, err := c.server.validator.Validate(c.ctx, data.Token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		c.logger.Warn("Rejected player", "player", data.PlayerID)
		c.emit(MessageTypeAuthResponse, AuthResponseData{Success: false, Error: "Invalid token"})
		return
	case err != nil:
		c.logger.Error("Auth service failed", "player", data.PlayerID, "error", err)
		c.emit(MessageTypeAuthResponse, AuthResponseData{Success: false, Error: "Authentication is unavailable, try again later"})
		return
	case identity != nil:
		id = identity.PlayerID
		if identity.PlayerName != "" {
			name = identity.PlayerName
		}
	}

	if id == "" {
		c.sendError(ErrCodeInvalidMessage, "Player ID required")
		return
	}
	if name == "" {
		name = id
	}
	c.setPlayer(game.PlayerID(id), name)
	c.logger.Info("Player authenticated", "player", id, "name", name, "verified", identity != nil)

	c.emit(MessageTypeAuthResponse, AuthResponseData{Success: true, PlayerID: id})
}

// requirePlayer returns the player or reports not_authenticated.
func (c *Connection) requirePlayer() (game.PlayerID, string, bool) {
	id, name := c.identity()
	if id == "" {
		c.sendError(ErrCodeNotAuthenticated, "Must authenticate first")
		return "", "", false
	}
	return id, name, true
}

func (c *Connection) handleStartGame(data StartGameData) {
	player, name, ok := c.requirePlayer()
	if !ok {
		return
	}
	if data.Channel == "" {
		c.sendError(ErrCodeInvalidMessage, "Channel required")
		return
	}
	kind, err := game.ParseKind(data.Game)
	if err != nil {
		c.sendError(ErrCodeUnknownGame, err.Error())
		return
	}

	s, err := c.server.registry.Start(data.Channel, kind, player)
	var active *session.AlreadyActiveError
	switch {
	case errors.As(err, &active):
		c.sendError(ErrCodeAlreadyActive, active.Error())
		return
	case err != nil:
		c.logger.Error("Failed to start game", "channel", data.Channel, "game", kind, "error", err)
		c.sendError(ErrCodeInternal, "Failed to start game")
		return
	}

	c.Subscribe(data.Channel)
	c.server.broadcast(data.Channel, MessageTypeAnnouncement, AnnouncementData{
		Channel: data.Channel,
		Message: name + " started a game of " + kind.String() + ".",
	})
	c.server.broadcast(data.Channel, MessageTypeState, StateData{
		Channel:   data.Channel,
		SessionID: s.ID(),
		Game:      kind.String(),
		View:      s.View(),
	})
}

func (c *Connection) handleSubscribe(data SubscribeData) {
	if data.Channel == "" {
		c.sendError(ErrCodeInvalidMessage, "Channel required")
		return
	}
	c.Subscribe(data.Channel)

	if s, ok := c.server.registry.Get(data.Channel); ok {
		c.emit(MessageTypeState, StateData{
			Channel:   data.Channel,
			SessionID: s.ID(),
			Game:      s.Kind().String(),
			View:      s.View(),
		})
	}
}

func (c *Connection) handleAction(data ActionData) {
	player, name, ok := c.requirePlayer()
	if !ok {
		return
	}
	if data.Kind == game.ActionTimeout {
		c.sendError(ErrCodeInvalidMessage, "Timeouts cannot be sent by clients")
		return
	}

	u, err := c.server.registry.Handle(data.Channel, game.Action{
		Player: player,
		Name:   name,
		Kind:   data.Kind,
		Arg:    data.Arg,
	})
	var notice *game.Notice
	switch {
	case errors.Is(err, session.ErrNoSession):
		c.sendError(ErrCodeNoSession, "No game is running in this channel.")
		return
	case errors.As(err, &notice):
		c.emit(MessageTypeNotice, NoticeData{Channel: data.Channel, Message: notice.Message})
		return
	case err != nil:
		c.sendError(ErrCodeInternal, "Something went wrong handling that action.")
		return
	}

	c.server.deliver(u, c)
}
