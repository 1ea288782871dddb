package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/watchroom/server/internal/repository/message"
)

// ChatLog is the append-only per-room message log. Recent messages are kept
// in an in-memory ring per room; the message repository is the durable
// source of truth and every append is persisted before it is acknowledged.
type ChatLog struct {
	repo          iMessageRepo
	logger        *slog.Logger
	capacity      int
	maxContentLen int

	mu      sync.RWMutex
	buffers map[string][]Message
}

func NewChatLog(repo iMessageRepo, capacity, maxContentLen int, logger *slog.Logger) *ChatLog {
	return &ChatLog{
		repo:          repo,
		logger:        logger,
		capacity:      capacity,
		maxContentLen: maxContentLen,
		buffers:       make(map[string][]Message),
	}
}

// Append validates and durably persists msg, then adds it to the room's
// ring. On persistence failure the message is dropped entirely so that no
// client ever sees a message that could be lost on crash.
func (l *ChatLog) Append(ctx context.Context, msg *Message) error {
	if err := l.validate(msg); err != nil {
		return err
	}

	if err := l.persist(ctx, msg); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	buffer := append(l.buffers[msg.RoomId], *msg)
	if len(buffer) > l.capacity {
		buffer = buffer[len(buffer)-l.capacity:]
	}
	l.buffers[msg.RoomId] = buffer

	return nil
}

// Recent returns up to limit messages for the room, oldest first. When the
// ring holds fewer messages than requested the repository is queried to
// backfill. On repository failure the ring's contents are still returned
// alongside the error so callers can degrade instead of failing the room.
func (l *ChatLog) Recent(ctx context.Context, roomId string, limit int) ([]Message, error) {
	l.mu.RLock()
	buffered := l.buffers[roomId]
	if len(buffered) >= limit {
		out := make([]Message, limit)
		copy(out, buffered[len(buffered)-limit:])
		l.mu.RUnlock()
		return out, nil
	}
	out := make([]Message, len(buffered))
	copy(out, buffered)
	l.mu.RUnlock()

	stored, err := l.repo.GetRecentMessages(ctx, &message.GetRecentMessagesParams{
		RoomId: roomId,
		Limit:  limit,
	})
	if err != nil {
		return out, fmt.Errorf("failed to query recent messages: %w", ErrPersistenceUnavailable)
	}

	// repository returns newest first
	out = make([]Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, fromRepoMessage(&stored[i]))
	}

	l.mu.Lock()
	if len(out) > len(l.buffers[roomId]) {
		warmed := out
		if len(warmed) > l.capacity {
			warmed = warmed[len(warmed)-l.capacity:]
		}
		l.buffers[roomId] = append([]Message(nil), warmed...)
	}
	l.mu.Unlock()

	return out, nil
}

// Forget drops the room's in-memory ring. Persisted messages are untouched.
func (l *ChatLog) Forget(roomId string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buffers, roomId)
}

func (l *ChatLog) validate(msg *Message) error {
	if msg.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len(msg.Content) > l.maxContentLen {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("must not exceed %d characters", l.maxContentLen)}
	}
	if msg.Username == "" {
		return &ValidationError{Field: "username", Reason: "must not be empty"}
	}

	return nil
}

func (l *ChatLog) persist(ctx context.Context, msg *Message) error {
	repoMsg := toRepoMessage(msg)

	err := l.repo.SaveMessage(ctx, repoMsg)
	if err != nil {
		l.logger.WarnContext(ctx, "failed to save message, retrying", "error", err)
		err = l.repo.SaveMessage(ctx, repoMsg)
	}
	if err != nil {
		l.logger.WarnContext(ctx, "failed to save message", "error", err)
		return fmt.Errorf("failed to save message: %w", ErrPersistenceUnavailable)
	}

	return nil
}

func toRepoMessage(msg *Message) *message.Message {
	return &message.Message{
		Id:        msg.Id,
		RoomId:    msg.RoomId,
		Type:      string(msg.Type),
		Username:  msg.Username,
		UserId:    msg.UserId,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func fromRepoMessage(msg *message.Message) Message {
	return Message{
		Id:        msg.Id,
		RoomId:    msg.RoomId,
		Type:      MessageType(msg.Type),
		Username:  msg.Username,
		UserId:    msg.UserId,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}
