package room

import "sync"

// PresenceRegistry tracks which connections are attached to which room.
// It is shared across rooms and safe for concurrent use.
type PresenceRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{rooms: make(map[string]map[string]struct{})}
}

// Join adds connectionId to the room's presence set and returns the
// resulting count. Joining twice with the same connectionId is a no-op.
func (p *PresenceRegistry) Join(roomId, connectionId string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.rooms[roomId]
	if !ok {
		conns = make(map[string]struct{})
		p.rooms[roomId] = conns
	}
	conns[connectionId] = struct{}{}

	return len(conns)
}

// Leave removes connectionId from the room's presence set. The second
// return reports whether the connection was present; leaving with an
// unknown id is a no-op.
func (p *PresenceRegistry) Leave(roomId, connectionId string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.rooms[roomId]
	if !ok {
		return 0, false
	}

	if _, known := conns[connectionId]; !known {
		return len(conns), false
	}

	delete(conns, connectionId)
	if len(conns) == 0 {
		delete(p.rooms, roomId)
		return 0, true
	}

	return len(conns), true
}

func (p *PresenceRegistry) Count(roomId string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.rooms[roomId])
}
