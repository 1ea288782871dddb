package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/watchroom/server/internal/repository/message"
)

var errStorageDown = errors.New("storage down")

type fakeMessageRepo struct {
	mu          sync.Mutex
	messages    map[string][]message.Message
	presence    map[string]message.UpsertUserPresenceParams
	failSaves   int
	failQueries int
	saveCalls   int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: make(map[string][]message.Message),
		presence: make(map[string]message.UpsertUserPresenceParams),
	}
}

func (f *fakeMessageRepo) SaveMessage(_ context.Context, msg *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++
	if f.failSaves > 0 {
		f.failSaves--
		return errStorageDown
	}

	f.messages[msg.RoomId] = append(f.messages[msg.RoomId], *msg)
	return nil
}

func (f *fakeMessageRepo) GetRecentMessages(_ context.Context, params *message.GetRecentMessagesParams) ([]message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failQueries > 0 {
		f.failQueries--
		return nil, errStorageDown
	}

	stored := f.messages[params.RoomId]
	out := make([]message.Message, 0, params.Limit)
	for i := len(stored) - 1; i >= 0 && len(out) < params.Limit; i-- {
		out = append(out, stored[i])
	}

	return out, nil
}

func (f *fakeMessageRepo) UpsertUserPresence(_ context.Context, params *message.UpsertUserPresenceParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.presence[params.Username] = *params
	return nil
}

func (f *fakeMessageRepo) saved(roomId string) []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]message.Message(nil), f.messages[roomId]...)
}

type fakeSender struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newFakeSender() *fakeSender {
	return &fakeSender{events: make(map[string][]Event)}
}

func (f *fakeSender) Broadcast(_ context.Context, roomId string, event *Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events[roomId] = append(f.events[roomId], *event)
}

func (f *fakeSender) roomEvents(roomId string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Event(nil), f.events[roomId]...)
}

func (f *fakeSender) eventsOfType(roomId string, eventType EventType) []Event {
	var out []Event
	for _, event := range f.roomEvents(roomId) {
		if event.Type == eventType {
			out = append(out, event)
		}
	}

	return out
}

func newTestRegistry(repo *fakeMessageRepo, sender *fakeSender, cfg *Config) *Registry {
	if cfg == nil {
		cfg = &Config{}
	}

	return NewRegistry(repo, sender, cfg, slog.Default())
}
