// Package client talks to a lantern server over its websocket protocol.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/server"
)

// Client is a websocket connection to a lantern server.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	playerID  string
	closeOnce sync.Once

	eventHandlers map[server.MessageType][]EventHandler
}

// EventHandler handles one incoming message. Handlers run on the client's
// event goroutine in arrival order and must not block.
type EventHandler func(*server.Message)

// NewClient creates an unconnected client.
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]EventHandler),
	}
	c.AddEventHandler(server.MessageTypeAuthResponse, c.handleAuthResponse)
	return c
}

// WebSocketURL maps a server URL to its /ws endpoint.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Connect dials the server and starts the pumps.
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	wsURL, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the connection.
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Done is closed once the client disconnects.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// SendMessage queues msg for the server.
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) sendData(messageType server.MessageType, data any) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		_ = c.Disconnect()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.dispatch(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) dispatch(msg *server.Message) {
	c.mu.RLock()
	handlers := c.eventHandlers[msg.Type]
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// AddEventHandler registers a handler for one message type.
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// Auth identifies the player for every later request. token may be empty
// when the server trusts client-supplied IDs.
func (c *Client) Auth(playerID, playerName, token string) error {
	c.mu.Lock()
	c.playerID = playerID
	c.mu.Unlock()

	return c.sendData(server.MessageTypeAuth, server.AuthData{
		PlayerID:   playerID,
		PlayerName: playerName,
		Token:      token,
	})
}

// handleAuthResponse records the ID the server settled on, which differs
// from the requested one when a token was validated.
func (c *Client) handleAuthResponse(msg *server.Message) {
	var data server.AuthResponseData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logger.Warn("Malformed auth response", "error", err)
		return
	}
	if !data.Success {
		c.logger.Error("Authentication failed", "error", data.Error)
		return
	}
	c.mu.Lock()
	c.playerID = data.PlayerID
	c.mu.Unlock()
}

// PlayerID returns the authenticated player's ID.
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// StartGame starts a game in channel and subscribes to it.
func (c *Client) StartGame(channel string, kind game.Kind) error {
	return c.sendData(server.MessageTypeStartGame, server.StartGameData{
		Channel: channel,
		Game:    kind.String(),
	})
}

// Subscribe follows channel; the server replies with its state if a game is
// running there.
func (c *Client) Subscribe(channel string) error {
	return c.sendData(server.MessageTypeSubscribe, server.SubscribeData{Channel: channel})
}

// SendAction presses a button in channel's game.
func (c *Client) SendAction(channel string, kind game.ActionKind, arg string) error {
	return c.sendData(server.MessageTypeAction, server.ActionData{
		Channel: channel,
		Kind:    kind,
		Arg:     arg,
	})
}

// ListGames asks for every running game.
func (c *Client) ListGames() error {
	return c.sendData(server.MessageTypeListGames, struct{}{})
}

// WaitForMessage blocks until a message of the given type arrives.
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	c.AddEventHandler(messageType, func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	})

	select {
	case msg := <-responseChan:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}
