package message

import "time"

type Message struct {
	Id        string    `json:"id"`
	RoomId    string    `json:"room_id"`
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	UserId    *string   `json:"user_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type GetRecentMessagesParams struct {
	RoomId string
	Limit  int
}

type UpsertUserPresenceParams struct {
	Username     string
	ConnectionId string
	Online       bool
}
