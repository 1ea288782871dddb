package room

// EventType is the closed set of payload kinds emitted to clients.
type EventType string

const (
	EventTypeRoomJoined      EventType = "ROOM_JOINED"
	EventTypePresenceChanged EventType = "PRESENCE_CHANGED"
	EventTypeChatMessage     EventType = "CHAT_MESSAGE"
	EventTypePlayerUpdated   EventType = "PLAYER_UPDATED"
	EventTypeError           EventType = "ERROR"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// RoomJoinedPayload is the full snapshot a freshly attached connection
// synchronizes against.
type RoomJoinedPayload struct {
	History     []Message `json:"history"`
	Player      Player    `json:"player"`
	MemberCount int       `json:"member_count"`
}

type PresenceChangedPayload struct {
	MemberCount int `json:"member_count"`
}

type ChatMessagePayload struct {
	Message Message `json:"message"`
}

type PlayerUpdatedPayload struct {
	Player Player `json:"player"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
