package server

import (
	"encoding/json"
	"time"

	"github.com/lox/lantern/internal/game"
	"github.com/lox/lantern/internal/session"
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage wraps data in an envelope stamped with the current time.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
	// Token is checked by the server's validator when one is configured;
	// the identity it resolves to replaces PlayerID.
	Token string `json:"token,omitempty"`
}

type StartGameData struct {
	Channel string `json:"channel"`
	Game    string `json:"game"`
}

type SubscribeData struct {
	Channel string `json:"channel"`
}

type ActionData struct {
	Channel string          `json:"channel"`
	Kind    game.ActionKind `json:"kind"`
	Arg     string          `json:"arg,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StateData struct {
	Channel   string    `json:"channel"`
	SessionID string    `json:"sessionId"`
	Game      string    `json:"game"`
	View      game.View `json:"view"`
}

type NoticeData struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type PromptData struct {
	Channel string    `json:"channel"`
	View    game.View `json:"view"`
	Expires bool      `json:"expires,omitempty"`
}

type AnnouncementData struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type GameEndedData struct {
	Channel   string `json:"channel"`
	SessionID string `json:"sessionId"`
}

type GameListData struct {
	Games []session.Summary `json:"games"`
}

// StateFromUpdate builds the channel state broadcast for an update.
func StateFromUpdate(u session.Update) StateData {
	return StateData{
		Channel:   u.Channel,
		SessionID: u.SessionID,
		Game:      u.Kind.String(),
		View:      u.View,
	}
}

// PromptFromOutcome returns the actor's private prompt, if the outcome has
// one.
func PromptFromOutcome(channel string, out game.Outcome) (PromptData, bool) {
	if out.Prompt == nil {
		return PromptData{}, false
	}
	return PromptData{
		Channel: channel,
		View:    out.Prompt.View,
		Expires: out.Prompt.Expires,
	}, true
}
