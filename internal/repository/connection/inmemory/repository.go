package inmemory

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// repo tracks live websocket connections by connection id and by room.
type repo struct {
	logger *slog.Logger

	mu       sync.RWMutex
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
	roomList map[string]map[string]struct{}
	roomById map[string]string
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger:   logger,
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
		roomList: make(map[string]map[string]struct{}),
		roomById: make(map[string]string),
	}
}

func (r *repo) Add(conn *websocket.Conn, connectionId, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" || r.idList[connectionId] != nil {
		return ErrAlreadyExists
	}

	r.connList[conn] = connectionId
	r.idList[connectionId] = conn
	r.roomById[connectionId] = roomId

	conns, ok := r.roomList[roomId]
	if !ok {
		conns = make(map[string]struct{})
		r.roomList[roomId] = conns
	}
	conns[connectionId] = struct{}{}

	r.logger.Debug("connection added", "connection_id", connectionId, "room_id", roomId)
	return nil
}

// RemoveByConn drops the connection and returns the connection id it was
// registered under.
func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connectionId, ok := r.connList[conn]
	if !ok {
		return "", ErrNotFound
	}
	r.remove(conn, connectionId)

	return connectionId, nil
}

func (r *repo) RemoveByConnectionId(connectionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[connectionId]
	if !ok {
		return ErrNotFound
	}
	r.remove(conn, connectionId)

	return nil
}

func (r *repo) remove(conn *websocket.Conn, connectionId string) {
	delete(r.connList, conn)
	delete(r.idList, connectionId)

	roomId := r.roomById[connectionId]
	delete(r.roomById, connectionId)
	if conns, ok := r.roomList[roomId]; ok {
		delete(conns, connectionId)
		if len(conns) == 0 {
			delete(r.roomList, roomId)
		}
	}

	r.logger.Debug("connection removed", "connection_id", connectionId, "room_id", roomId)
}

func (r *repo) GetConn(connectionId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[connectionId]
	if !ok {
		return nil, ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetConnectionId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionId, ok := r.connList[conn]
	if !ok {
		return "", ErrNotFound
	}

	return connectionId, nil
}

// GetConns returns the live connections attached to the room.
func (r *repo) GetConns(roomId string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.roomList[roomId]
	if !ok {
		return nil
	}

	conns := make([]*websocket.Conn, 0, len(ids))
	for connectionId := range ids {
		if conn, ok := r.idList[connectionId]; ok {
			conns = append(conns, conn)
		}
	}

	return conns
}
