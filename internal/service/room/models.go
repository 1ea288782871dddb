package room

import "time"

type MessageType string

const (
	MessageTypeChat         MessageType = "chat"
	MessageTypeAdmin        MessageType = "admin"
	MessageTypePlayerChange MessageType = "player-change"
)

// Message is an immutable chat log entry.
type Message struct {
	Id        string      `json:"id"`
	RoomId    string      `json:"room_id"`
	Type      MessageType `json:"type"`
	Username  string      `json:"username"`
	UserId    *string     `json:"user_id,omitempty"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// Player is a snapshot of a room's playback state. Version strictly
// increases on every accepted mutation; consumers must discard any snapshot
// whose version is not greater than the last one they observed.
type Player struct {
	VideoId   *string `json:"video_id"`
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
	UpdatedAt int64   `json:"updated_at"`
	Version   int64   `json:"version"`
}
