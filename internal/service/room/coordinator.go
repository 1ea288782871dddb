package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/watchroom/server/internal/repository/message"
)

type member struct {
	username string
	userId   *string
}

// Coordinator owns one room: its presence slice, chat log window and
// playback state. Every state-mutating operation is serialized by the room
// mutex, in arrival order, so the playback version counter and chat
// ordering are race free without per-field locks. Broadcasts happen while
// the mutex is held, which makes the event sequence observed by every
// connection identical and causally ordered.
type Coordinator struct {
	roomId       string
	presence     *PresenceRegistry
	chat         *ChatLog
	messageRepo  iMessageRepo
	sender       iSender
	logger       *slog.Logger
	idleTimeout  time.Duration
	historyLimit int
	evict        func(roomId string)

	mu        sync.Mutex
	members   map[string]member
	player    playerState
	idleTimer *time.Timer
	closed    bool
}

func (c *Coordinator) RoomId() string {
	return c.roomId
}

// MemberCount reports the number of currently attached connections.
func (c *Coordinator) MemberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.members)
}

type AttachParams struct {
	ConnectionId string
	Username     string
	UserId       *string
}

type AttachResponse struct {
	History     []Message
	Player      Player
	MemberCount int
}

// Attach registers the connection with the room and returns the snapshot it
// must synchronize against. The updated presence count is broadcast to the
// room; the new connection reconciles against the snapshot's count.
func (c *Coordinator) Attach(ctx context.Context, params *AttachParams) (AttachResponse, error) {
	if params.Username == "" {
		return AttachResponse{}, &ValidationError{Field: "username", Reason: "must not be empty"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return AttachResponse{}, ErrRoomNotFound
	}

	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}

	count := c.presence.Join(c.roomId, params.ConnectionId)
	c.members[params.ConnectionId] = member{username: params.Username, userId: params.UserId}

	c.upsertUserPresence(ctx, params.Username, params.ConnectionId, true)

	history, err := c.chat.Recent(ctx, c.roomId, c.historyLimit)
	if err != nil {
		// serve what the ring buffer had
		c.logger.WarnContext(ctx, "failed to load chat history", "room_id", c.roomId, "error", err)
	}

	c.sender.Broadcast(ctx, c.roomId, &Event{
		Type:    EventTypePresenceChanged,
		Payload: PresenceChangedPayload{MemberCount: count},
	})

	return AttachResponse{
		History:     history,
		Player:      c.player.snapshot(),
		MemberCount: count,
	}, nil
}

// Detach removes the connection from the room. It is idempotent: detaching
// an unknown or already detached connection is a no-op, which keeps
// reconnect races harmless. When the last connection leaves, the idle
// eviction timer is armed.
func (c *Coordinator) Detach(ctx context.Context, connectionId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.members[connectionId]
	if !ok {
		return
	}
	delete(c.members, connectionId)

	count, _ := c.presence.Leave(c.roomId, connectionId)
	c.upsertUserPresence(ctx, m.username, connectionId, false)

	c.sender.Broadcast(ctx, c.roomId, &Event{
		Type:    EventTypePresenceChanged,
		Payload: PresenceChangedPayload{MemberCount: count},
	})

	if count == 0 && !c.closed {
		roomId := c.roomId
		c.idleTimer = time.AfterFunc(c.idleTimeout, func() {
			c.evict(roomId)
		})
	}
}

type SendChatParams struct {
	ConnectionId string
	Content      string
}

// SendChat validates and durably appends a chat message, then broadcasts it
// to every attached connection including the sender. The sender reconciles
// by message id rather than by echo suppression.
func (c *Coordinator) SendChat(ctx context.Context, params *SendChatParams) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.members[params.ConnectionId]
	if !ok {
		return Message{}, ErrMemberNotFound
	}

	msg := Message{
		Id:        ulid.Make().String(),
		RoomId:    c.roomId,
		Type:      MessageTypeChat,
		Username:  m.username,
		UserId:    m.userId,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
	}

	if err := c.chat.Append(ctx, &msg); err != nil {
		return Message{}, err
	}

	c.sender.Broadcast(ctx, c.roomId, &Event{
		Type:    EventTypeChatMessage,
		Payload: ChatMessagePayload{Message: msg},
	})

	return msg, nil
}

type ApplyPlayerCommandParams struct {
	ConnectionId string
	Command      PlayerCommand
}

// ApplyPlayerCommand applies a playback transition and broadcasts the
// resulting snapshot. Conflicting near-simultaneous commands resolve by
// arrival order at the room mutex, last writer wins. Rejected commands are
// reported to the caller only and never broadcast.
func (c *Coordinator) ApplyPlayerCommand(ctx context.Context, params *ApplyPlayerCommandParams) (Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.members[params.ConnectionId]
	if !ok {
		return Player{}, ErrMemberNotFound
	}

	now := time.Now().UTC()

	var (
		player  Player
		changed bool
		err     error
	)
	switch params.Command.Action {
	case PlayerActionSelectVideo:
		if params.Command.VideoId == "" {
			return Player{}, &ValidationError{Field: "video_id", Reason: "must not be empty"}
		}
		player = c.player.selectVideo(params.Command.VideoId, now)
		changed = true
	case PlayerActionPlay:
		player, changed, err = c.player.play(params.Command.Position, now)
	case PlayerActionPause:
		player, changed, err = c.player.pause(params.Command.Position, now)
	case PlayerActionSeek:
		player, changed, err = c.player.seek(params.Command.Position, now)
	default:
		return Player{}, &RejectedCommandError{Command: string(params.Command.Action), Reason: "unknown action"}
	}
	if err != nil {
		return Player{}, err
	}

	if !changed {
		return player, nil
	}

	c.sender.Broadcast(ctx, c.roomId, &Event{
		Type:    EventTypePlayerUpdated,
		Payload: PlayerUpdatedPayload{Player: player},
	})

	if params.Command.Action == PlayerActionSelectVideo {
		c.appendPlayerChange(ctx, m, params.Command.VideoId)
	}

	return player, nil
}

// appendPlayerChange records a video selection in the chat log. Best
// effort: a persistence failure must not reject the playback command that
// already went through.
func (c *Coordinator) appendPlayerChange(ctx context.Context, m member, videoId string) {
	msg := Message{
		Id:        ulid.Make().String(),
		RoomId:    c.roomId,
		Type:      MessageTypePlayerChange,
		Username:  m.username,
		UserId:    m.userId,
		Content:   fmt.Sprintf("%s changed the video to %s", m.username, videoId),
		CreatedAt: time.Now().UTC(),
	}

	if err := c.chat.Append(ctx, &msg); err != nil {
		c.logger.WarnContext(ctx, "failed to record player change", "room_id", c.roomId, "error", err)
		return
	}

	c.sender.Broadcast(ctx, c.roomId, &Event{
		Type:    EventTypeChatMessage,
		Payload: ChatMessagePayload{Message: msg},
	})
}

func (c *Coordinator) upsertUserPresence(ctx context.Context, username, connectionId string, online bool) {
	params := message.UpsertUserPresenceParams{
		Username:     username,
		ConnectionId: connectionId,
		Online:       online,
	}

	err := c.messageRepo.UpsertUserPresence(ctx, &params)
	if err != nil {
		err = c.messageRepo.UpsertUserPresence(ctx, &params)
	}
	if err != nil {
		// membership changes must not fail on storage hiccups
		c.logger.WarnContext(ctx, "failed to upsert user presence", "username", username, "error", err)
	}
}

// close marks the coordinator dead. Called by the registry with the
// registry lock held, on eviction or shutdown.
func (c *Coordinator) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	c.chat.Forget(c.roomId)
}
