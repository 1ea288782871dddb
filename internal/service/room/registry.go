package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/watchroom/server/internal/repository/message"
)

type iMessageRepo interface {
	SaveMessage(ctx context.Context, msg *message.Message) error
	GetRecentMessages(ctx context.Context, params *message.GetRecentMessagesParams) ([]message.Message, error)
	UpsertUserPresence(ctx context.Context, params *message.UpsertUserPresenceParams) error
}

type iSender interface {
	Broadcast(ctx context.Context, roomId string, event *Event)
}

type Config struct {
	// IdleTimeout is how long a room with zero presence survives before
	// being evicted.
	IdleTimeout time.Duration
	// HistoryLimit caps the chat history replayed to a new connection and
	// sizes the per-room in-memory ring.
	HistoryLimit int
	// MaxMessageLength bounds chat message content.
	MaxMessageLength int
}

const (
	defaultIdleTimeout      = time.Minute
	defaultHistoryLimit     = 50
	defaultMaxMessageLength = 500
)

// Registry is the process-wide mapping of roomId to coordinator. It is
// created at service start and injected wherever inbound connections are
// accepted; rooms are created on first use and evicted after sitting empty
// for the idle timeout.
type Registry struct {
	presence *PresenceRegistry
	chat     *ChatLog
	repo     iMessageRepo
	sender   iSender
	logger   *slog.Logger
	cfg      Config

	mu    sync.RWMutex
	rooms map[string]*Coordinator
}

func NewRegistry(repo iMessageRepo, sender iSender, cfg *Config, logger *slog.Logger) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessageLength
	}

	return &Registry{
		presence: NewPresenceRegistry(),
		chat:     NewChatLog(repo, cfg.HistoryLimit, cfg.MaxMessageLength, logger),
		repo:     repo,
		sender:   sender,
		logger:   logger,
		cfg:      *cfg,
		rooms:    make(map[string]*Coordinator),
	}
}

// GetOrCreate returns the room's coordinator, creating it on first call.
// At most one coordinator ever exists per roomId, also under concurrent
// calls for the same id.
func (r *Registry) GetOrCreate(roomId string) *Coordinator {
	r.mu.RLock()
	coord, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if ok {
		return coord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if coord, ok := r.rooms[roomId]; ok {
		return coord
	}

	coord = r.newCoordinator(roomId)
	r.rooms[roomId] = coord
	r.logger.Info("room created", "room_id", roomId)

	return coord
}

// Get returns the room's coordinator or ErrRoomNotFound. Callers that want
// creation semantics must use GetOrCreate.
func (r *Registry) Get(roomId string) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coord, ok := r.rooms[roomId]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return coord, nil
}

func (r *Registry) Exists(roomId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomId]

	return ok
}

// evictIfIdle removes the room if it still has zero presence. Invoked by
// each coordinator's idle timer; a rejoin between timer fire and this check
// keeps the room alive.
func (r *Registry) evictIfIdle(roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coord, ok := r.rooms[roomId]
	if !ok {
		return
	}
	if coord.MemberCount() > 0 {
		return
	}

	coord.close()
	delete(r.rooms, roomId)
	r.logger.Info("room evicted", "room_id", roomId)
}

// Shutdown tears down every room. Part of process shutdown, after the
// listener stopped accepting connections.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomId, coord := range r.rooms {
		coord.close()
		delete(r.rooms, roomId)
	}
}

func (r *Registry) newCoordinator(roomId string) *Coordinator {
	return &Coordinator{
		roomId:       roomId,
		presence:     r.presence,
		chat:         r.chat,
		messageRepo:  r.repo,
		sender:       r.sender,
		logger:       r.logger,
		idleTimeout:  r.cfg.IdleTimeout,
		historyLimit: r.cfg.HistoryLimit,
		evict:        r.evictIfIdle,
		members:      make(map[string]member),
	}
}
