package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/message"
)

// messagesCap bounds how many messages are retained per room in redis.
const messagesCap = 1000

type repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	expireDuration time.Duration
}

func NewRepo(rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
	}
}

func (r repo) getMessagesKey(roomId string) string {
	return "room:" + roomId + ":messages"
}

func (r repo) getUserKey(username string) string {
	return "user:" + username
}

func (r repo) SaveMessage(ctx context.Context, msg *message.Message) error {
	r.logger.DebugContext(ctx, "called", "message_id", msg.Id, "room_id", msg.RoomId)

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	messagesKey := r.getMessagesKey(msg.RoomId)
	pipe := r.rc.TxPipeline()
	pipe.LPush(ctx, messagesKey, b)
	pipe.LTrim(ctx, messagesKey, 0, messagesCap-1)
	pipe.Expire(ctx, messagesKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r repo) GetRecentMessages(ctx context.Context, params *message.GetRecentMessagesParams) ([]message.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	messagesKey := r.getMessagesKey(params.RoomId)
	vals, err := r.rc.LRange(ctx, messagesKey, 0, int64(params.Limit)-1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}

	r.rc.Expire(ctx, messagesKey, r.expireDuration)

	// LPUSH keeps newest first, which is the contract
	messages := make([]message.Message, 0, len(vals))
	for _, val := range vals {
		var msg message.Message
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (r repo) UpsertUserPresence(ctx context.Context, params *message.UpsertUserPresenceParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	userKey := r.getUserKey(params.Username)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, userKey,
		"connection_id", params.ConnectionId,
		"online", params.Online,
	)
	pipe.Expire(ctx, userKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to upsert user presence: %w", err)
	}

	return nil
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
