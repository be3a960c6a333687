package tui

import (
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/lantern/internal/client"
	"github.com/lox/lantern/internal/server"
)

// Messages delivered to the model from the server.
type (
	StateMsg        server.StateData
	NoticeMsg       server.NoticeData
	PromptMsg       server.PromptData
	AnnouncementMsg server.AnnouncementData
	GameEndedMsg    server.GameEndedData
	GameListMsg     server.GameListData
	ErrorMsg        server.ErrorData
	DisconnectedMsg struct{}
)

// Bridge forwards every server message the model understands to send,
// usually (*tea.Program).Send.
func Bridge(c *client.Client, logger *log.Logger, send func(tea.Msg)) {
	logger = logger.WithPrefix("bridge")

	forward(c, logger, server.MessageTypeState, send, func(d server.StateData) tea.Msg { return StateMsg(d) })
	forward(c, logger, server.MessageTypeNotice, send, func(d server.NoticeData) tea.Msg { return NoticeMsg(d) })
	forward(c, logger, server.MessageTypePrompt, send, func(d server.PromptData) tea.Msg { return PromptMsg(d) })
	forward(c, logger, server.MessageTypeAnnouncement, send, func(d server.AnnouncementData) tea.Msg { return AnnouncementMsg(d) })
	forward(c, logger, server.MessageTypeGameEnded, send, func(d server.GameEndedData) tea.Msg { return GameEndedMsg(d) })
	forward(c, logger, server.MessageTypeGameList, send, func(d server.GameListData) tea.Msg { return GameListMsg(d) })
	forward(c, logger, server.MessageTypeError, send, func(d server.ErrorData) tea.Msg { return ErrorMsg(d) })

	go func() {
		<-c.Done()
		send(DisconnectedMsg{})
	}()
}

func forward[T any](c *client.Client, logger *log.Logger, messageType server.MessageType, send func(tea.Msg), wrap func(T) tea.Msg) {
	c.AddEventHandler(messageType, func(msg *server.Message) {
		var data T
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Warn("Dropping malformed message", "type", messageType, "error", err)
			return
		}
		send(wrap(data))
	})
}
