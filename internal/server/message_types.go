package server

// MessageType names a websocket message.
type MessageType string

const (
	// Client to server
	MessageTypeAuth      MessageType = "auth"
	MessageTypeStartGame MessageType = "start_game"
	MessageTypeSubscribe MessageType = "subscribe"
	MessageTypeAction    MessageType = "action"
	MessageTypeListGames MessageType = "list_games"

	// Server to client
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeState        MessageType = "state"
	MessageTypeNotice       MessageType = "notice"
	MessageTypePrompt       MessageType = "prompt"
	MessageTypeAnnouncement MessageType = "announcement"
	MessageTypeGameEnded    MessageType = "game_ended"
	MessageTypeGameList     MessageType = "game_list"
	MessageTypeError        MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Error codes sent in ErrorData.
const (
	ErrCodeInvalidMessage   = "invalid_message"
	ErrCodeUnknownType      = "unknown_message_type"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeNoSession        = "no_session"
	ErrCodeAlreadyActive    = "already_active"
	ErrCodeUnknownGame      = "unknown_game"
	ErrCodeInternal         = "internal_error"
)
