package room

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attach(t *testing.T, coord *Coordinator, connectionId, username string) AttachResponse {
	t.Helper()

	resp, err := coord.Attach(context.Background(), &AttachParams{
		ConnectionId: connectionId,
		Username:     username,
	})
	require.NoError(t, err)

	return resp
}

func TestCoordinator_Attach(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, nil)
	coord := registry.GetOrCreate("room-1")

	resp := attach(t, coord, "conn-1", "alice")

	assert.Empty(t, resp.History)
	assert.Nil(t, resp.Player.VideoId)
	assert.Equal(t, int64(0), resp.Player.Version)
	assert.Equal(t, 1, resp.MemberCount)

	resp = attach(t, coord, "conn-2", "bob")
	assert.Equal(t, 2, resp.MemberCount)

	events := sender.eventsOfType("room-1", EventTypePresenceChanged)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Payload.(PresenceChangedPayload).MemberCount)
	assert.Equal(t, 2, events[1].Payload.(PresenceChangedPayload).MemberCount)

	// presence is mirrored to storage as online
	require.Contains(t, repo.presence, "alice")
	assert.True(t, repo.presence["alice"].Online)
}

func TestCoordinator_AttachRequiresUsername(t *testing.T) {
	registry := newTestRegistry(newFakeMessageRepo(), newFakeSender(), nil)
	coord := registry.GetOrCreate("room-1")

	_, err := coord.Attach(context.Background(), &AttachParams{ConnectionId: "conn-1"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "username", validationErr.Field)
	assert.Zero(t, coord.MemberCount())
}

func TestCoordinator_AttachServesHistoryDespiteStorageFailure(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, nil)
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")
	_, err := coord.SendChat(context.Background(), &SendChatParams{ConnectionId: "conn-1", Content: "hello"})
	require.NoError(t, err)

	// history replay degrades to the ring when the query path is down
	repo.failQueries = 1
	resp := attach(t, coord, "conn-2", "bob")
	require.Len(t, resp.History, 1)
	assert.Equal(t, "hello", resp.History[0].Content)
}

func TestCoordinator_DetachIsIdempotent(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, &Config{IdleTimeout: time.Hour})
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")
	attach(t, coord, "conn-2", "bob")

	coord.Detach(context.Background(), "conn-1")
	coord.Detach(context.Background(), "conn-1")
	coord.Detach(context.Background(), "unknown")

	assert.Equal(t, 1, coord.MemberCount())

	// two attaches plus exactly one effective detach
	events := sender.eventsOfType("room-1", EventTypePresenceChanged)
	require.Len(t, events, 3)
	assert.Equal(t, 1, events[2].Payload.(PresenceChangedPayload).MemberCount)

	assert.False(t, repo.presence["alice"].Online)
}

func TestCoordinator_SendChat(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, nil)
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")

	msg, err := coord.SendChat(context.Background(), &SendChatParams{ConnectionId: "conn-1", Content: "hello"})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.Id)
	assert.Equal(t, MessageTypeChat, msg.Type)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "hello", msg.Content)

	// broadcast to everyone, sender included
	events := sender.eventsOfType("room-1", EventTypeChatMessage)
	require.Len(t, events, 1)
	assert.Equal(t, msg.Id, events[0].Payload.(ChatMessagePayload).Message.Id)

	require.Len(t, repo.saved("room-1"), 1)
}

func TestCoordinator_SendChatFromUnknownConnection(t *testing.T) {
	registry := newTestRegistry(newFakeMessageRepo(), newFakeSender(), nil)
	coord := registry.GetOrCreate("room-1")

	_, err := coord.SendChat(context.Background(), &SendChatParams{ConnectionId: "conn-1", Content: "hello"})
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestCoordinator_SendChatPersistenceFailureIsNotBroadcast(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, nil)
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")

	repo.failSaves = 2
	_, err := coord.SendChat(context.Background(), &SendChatParams{ConnectionId: "conn-1", Content: "hello"})
	require.ErrorIs(t, err, ErrPersistenceUnavailable)

	assert.Empty(t, sender.eventsOfType("room-1", EventTypeChatMessage))
}

func TestCoordinator_PlayerLifecycle(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, nil)
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")

	player, err := coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-1",
		Command:      PlayerCommand{Action: PlayerActionSelectVideo, VideoId: "vid-42"},
	})
	require.NoError(t, err)
	require.NotNil(t, player.VideoId)
	assert.Equal(t, "vid-42", *player.VideoId)
	assert.False(t, player.IsPlaying)
	assert.Equal(t, int64(1), player.Version)

	// the selection is announced in chat
	chatEvents := sender.eventsOfType("room-1", EventTypeChatMessage)
	require.Len(t, chatEvents, 1)
	announced := chatEvents[0].Payload.(ChatMessagePayload).Message
	assert.Equal(t, MessageTypePlayerChange, announced.Type)
	assert.Contains(t, announced.Content, "vid-42")

	player, err = coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-1",
		Command:      PlayerCommand{Action: PlayerActionPlay, Position: 0},
	})
	require.NoError(t, err)
	assert.True(t, player.IsPlaying)
	assert.Equal(t, int64(2), player.Version)

	// playing an already playing room changes nothing and stays silent
	updatedBefore := len(sender.eventsOfType("room-1", EventTypePlayerUpdated))
	player, err = coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-1",
		Command:      PlayerCommand{Action: PlayerActionPlay, Position: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), player.Version)
	assert.Len(t, sender.eventsOfType("room-1", EventTypePlayerUpdated), updatedBefore)
}

func TestCoordinator_PlayerCommandRejections(t *testing.T) {
	registry := newTestRegistry(newFakeMessageRepo(), newFakeSender(), nil)
	coord := registry.GetOrCreate("room-1")
	attach(t, coord, "conn-1", "alice")

	var rejected *RejectedCommandError
	_, err := coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-1",
		Command:      PlayerCommand{Action: PlayerActionPlay},
	})
	require.ErrorAs(t, err, &rejected)

	var validationErr *ValidationError
	_, err = coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-1",
		Command:      PlayerCommand{Action: PlayerActionSelectVideo},
	})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "video_id", validationErr.Field)

	_, err = coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-1",
		Command:      PlayerCommand{Action: PlayerAction("rewind")},
	})
	require.ErrorAs(t, err, &rejected)
}

func TestCoordinator_BroadcastVersionsStrictlyIncrease(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, nil)
	coord := registry.GetOrCreate("room-1")

	const conns = 4
	for i := 0; i < conns; i++ {
		attach(t, coord, fmt.Sprintf("conn-%d", i), fmt.Sprintf("user-%d", i))
	}

	_, err := coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
		ConnectionId: "conn-0",
		Command:      PlayerCommand{Action: PlayerActionSelectVideo, VideoId: "vid-42"},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				coord.ApplyPlayerCommand(context.Background(), &ApplyPlayerCommandParams{
					ConnectionId: fmt.Sprintf("conn-%d", i),
					Command:      PlayerCommand{Action: PlayerActionSeek, Position: float64(j)},
				})
			}
		}(i)
	}
	wg.Wait()

	events := sender.eventsOfType("room-1", EventTypePlayerUpdated)
	require.NotEmpty(t, events)
	last := int64(0)
	for _, event := range events {
		version := event.Payload.(PlayerUpdatedPayload).Player.Version
		require.Greater(t, version, last)
		last = version
	}
}

func TestCoordinator_IdleEviction(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, &Config{IdleTimeout: 20 * time.Millisecond})
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")
	coord.Detach(context.Background(), "conn-1")

	require.Eventually(t, func() bool {
		return !registry.Exists("room-1")
	}, time.Second, 5*time.Millisecond)

	// attaching to the dead coordinator fails; a fresh room works
	_, err := coord.Attach(context.Background(), &AttachParams{ConnectionId: "conn-2", Username: "bob"})
	require.ErrorIs(t, err, ErrRoomNotFound)

	fresh := registry.GetOrCreate("room-1")
	assert.NotSame(t, coord, fresh)
	attach(t, fresh, "conn-2", "bob")
}

func TestCoordinator_RejoinCancelsEviction(t *testing.T) {
	repo := newFakeMessageRepo()
	sender := newFakeSender()
	registry := newTestRegistry(repo, sender, &Config{IdleTimeout: 50 * time.Millisecond})
	coord := registry.GetOrCreate("room-1")

	attach(t, coord, "conn-1", "alice")
	coord.Detach(context.Background(), "conn-1")
	attach(t, coord, "conn-2", "bob")

	time.Sleep(120 * time.Millisecond)

	assert.True(t, registry.Exists("room-1"))
	assert.Equal(t, 1, coord.MemberCount())
}
