package wssender

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
)

type iConnRepo interface {
	GetConn(connectionId string) (*websocket.Conn, error)
	GetConns(roomId string) []*websocket.Conn
}

// Repo fans events out over live websocket connections. gorilla conns allow
// only one concurrent writer, so writes are serialized per connection.
type Repo struct {
	conns  iConnRepo
	logger *slog.Logger

	mu      sync.Mutex
	writeMu map[*websocket.Conn]*sync.Mutex
}

func NewRepo(conns iConnRepo, logger *slog.Logger) *Repo {
	return &Repo{
		conns:   conns,
		logger:  logger,
		writeMu: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Broadcast sends the event to every connection in the room. Write failures
// are logged and skipped; the dead connection's own read loop tears it down.
func (r *Repo) Broadcast(ctx context.Context, roomId string, event *room.Event) {
	for _, conn := range r.conns.GetConns(roomId) {
		if err := r.writeJSON(conn, event); err != nil {
			r.logger.WarnContext(ctx, "failed to write event", "room_id", roomId, "event_type", event.Type, "error", err)
		}
	}
}

func (r *Repo) SendTo(ctx context.Context, connectionId string, event *room.Event) error {
	conn, err := r.conns.GetConn(connectionId)
	if err != nil {
		return err
	}

	return r.writeJSON(conn, event)
}

// Forget releases the write lock kept for the connection. Called after the
// connection is removed from the connection repository.
func (r *Repo) Forget(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.writeMu, conn)
}

func (r *Repo) writeJSON(conn *websocket.Conn, v any) error {
	r.mu.Lock()
	mu, ok := r.writeMu[conn]
	if !ok {
		mu = &sync.Mutex{}
		r.writeMu[conn] = mu
	}
	r.mu.Unlock()

	mu.Lock()
	defer mu.Unlock()

	return conn.WriteJSON(v)
}
