package redis

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/repository/message"
)

func setupRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		require.NoError(t, rc.Close())
	})

	return NewRepo(rc, time.Hour, slog.Default()), mr
}

func testMessage(roomId, id, content string, createdAt time.Time) *message.Message {
	return &message.Message{
		Id:        id,
		RoomId:    roomId,
		Type:      "chat",
		Username:  "alice",
		Content:   content,
		CreatedAt: createdAt,
	}
}

func TestRepo_SaveAndGetRecentMessages(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		msg := testMessage("room-1", fmt.Sprintf("msg-%d", i), fmt.Sprintf("message %d", i), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.SaveMessage(ctx, msg))
	}

	messages, err := repo.GetRecentMessages(ctx, &message.GetRecentMessagesParams{RoomId: "room-1", Limit: 3})
	require.NoError(t, err)

	// newest first
	require.Len(t, messages, 3)
	assert.Equal(t, "msg-4", messages[0].Id)
	assert.Equal(t, "msg-3", messages[1].Id)
	assert.Equal(t, "msg-2", messages[2].Id)
	assert.Equal(t, "message 4", messages[0].Content)
	assert.True(t, messages[0].CreatedAt.Equal(now.Add(4*time.Second)))
}

func TestRepo_GetRecentMessagesEmptyRoom(t *testing.T) {
	repo, _ := setupRepo(t)

	messages, err := repo.GetRecentMessages(context.Background(), &message.GetRecentMessagesParams{RoomId: "room-1", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRepo_RoomsAreIsolated(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveMessage(ctx, testMessage("room-1", "msg-1", "one", time.Now())))
	require.NoError(t, repo.SaveMessage(ctx, testMessage("room-2", "msg-2", "two", time.Now())))

	messages, err := repo.GetRecentMessages(ctx, &message.GetRecentMessagesParams{RoomId: "room-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "msg-1", messages[0].Id)
}

func TestRepo_SaveMessageSetsExpiry(t *testing.T) {
	repo, mr := setupRepo(t)

	require.NoError(t, repo.SaveMessage(context.Background(), testMessage("room-1", "msg-1", "one", time.Now())))

	ttl := mr.TTL("room:room-1:messages")
	assert.Equal(t, time.Hour, ttl)
}

func TestRepo_UpsertUserPresence(t *testing.T) {
	repo, mr := setupRepo(t)
	ctx := context.Background()

	err := repo.UpsertUserPresence(ctx, &message.UpsertUserPresenceParams{
		Username:     "alice",
		ConnectionId: "conn-1",
		Online:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "conn-1", mr.HGet("user:alice", "connection_id"))
	assert.Equal(t, "1", mr.HGet("user:alice", "online"))

	err = repo.UpsertUserPresence(ctx, &message.UpsertUserPresenceParams{
		Username:     "alice",
		ConnectionId: "conn-2",
		Online:       false,
	})
	require.NoError(t, err)

	assert.Equal(t, "conn-2", mr.HGet("user:alice", "connection_id"))
	assert.Equal(t, "0", mr.HGet("user:alice", "online"))
}
