package room

import "encoding/json"

// Event names on the room's websocket stream.
const (
	EventChatMsg     = "chatMsg"
	EventChangeMedia = "changeMedia"
	EventLogin       = "login"
)

// frame is the envelope for every message on the wire.
type frame struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// chatPayload is the inbound chat event. rank defaults to 1 when absent.
type chatPayload struct {
	Username string `json:"username"`
	Msg      string `json:"msg"`
	Time     int64  `json:"time"` // epoch seconds
	Meta     struct {
		Rank *int `json:"rank"`
	} `json:"meta"`
}

// loginPayload authenticates the bot into a channel.
type loginPayload struct {
	Channel  string `json:"channel"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// sendChatPayload is the outbound chat-send call.
type sendChatPayload struct {
	Msg string `json:"msg"`
}
