package bus

import "time"

// ChatMessage represents a chat line received from the room.
type ChatMessage struct {
	Username string    `json:"username"`
	Text     string    `json:"msg"`
	Time     time.Time `json:"-"`
	Rank     int       `json:"-"` // privilege level: 1=normal, higher=moderator/admin
}

// MediaChange represents a now-playing change in the room.
// All fields except Title are optional on the wire.
type MediaChange struct {
	Title    string `json:"title"`
	Seconds  int    `json:"seconds"`
	Type     string `json:"type"`
	QueuedBy string `json:"queueby"`
}

// ChatHandler handles an inbound chat message.
type ChatHandler func(ChatMessage)

// MediaHandler handles a media-change notification.
type MediaHandler func(MediaChange)
