package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/watchroom/server/internal/repository/message"
)

// repo persists messages and user presence in postgres. Expected schema:
//
//	messages(id text primary key, room_id text, type text, username text,
//	         user_id text null, content text, created_at timestamptz)
//	user_presence(username text primary key, connection_id text,
//	         online boolean, updated_at timestamptz)
type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepo(connStr string, logger *slog.Logger) (*repo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	return &repo{db: db, logger: logger}, nil
}

func (r *repo) SaveMessage(ctx context.Context, msg *message.Message) error {
	r.logger.DebugContext(ctx, "called", "message_id", msg.Id, "room_id", msg.RoomId)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, type, username, user_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.Id, msg.RoomId, msg.Type, msg.Username, msg.UserId, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r *repo) GetRecentMessages(ctx context.Context, params *message.GetRecentMessagesParams) ([]message.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, room_id, type, username, user_id, content, created_at
		 FROM messages
		 WHERE room_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		params.RoomId, params.Limit,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var messages []message.Message
	for rows.Next() {
		var (
			msg    message.Message
			userId sql.NullString
		)
		if err := rows.Scan(&msg.Id, &msg.RoomId, &msg.Type, &msg.Username, &userId, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if userId.Valid {
			msg.UserId = &userId.String
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

func (r *repo) UpsertUserPresence(ctx context.Context, params *message.UpsertUserPresenceParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_presence (username, connection_id, online, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (username) DO UPDATE
		 SET connection_id = EXCLUDED.connection_id, online = EXCLUDED.online, updated_at = now()`,
		params.Username, params.ConnectionId, params.Online,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to upsert user presence: %w", err)
	}

	return nil
}

func (r *repo) Close() error {
	return r.db.Close()
}
