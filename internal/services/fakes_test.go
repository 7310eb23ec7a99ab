package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/cache"
	"livechat/internal/events"
	"livechat/internal/models"
	"livechat/internal/presence"
	"livechat/internal/store"
)

type emission struct {
	kind    string // "conn", "room", "all"
	target  string
	event   string
	payload interface{}
	except  string
}

type fakeEmitter struct {
	mu    sync.Mutex
	out   []emission
	joins map[string][]string
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{joins: make(map[string][]string)}
}

func (f *fakeEmitter) Join(connID, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins[connID] = append(f.joins[connID], room)
}

func (f *fakeEmitter) EmitToConn(connID, event string, payload interface{}) {
	f.record(emission{kind: "conn", target: connID, event: event, payload: payload})
}

func (f *fakeEmitter) EmitToRoom(room, event string, payload interface{}, exceptConnID string) {
	f.record(emission{kind: "room", target: room, event: event, payload: payload, except: exceptConnID})
}

func (f *fakeEmitter) Broadcast(event string, payload interface{}) {
	f.record(emission{kind: "all", event: event, payload: payload})
}

func (f *fakeEmitter) record(e emission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, e)
}

// byEvent returns the emissions of one event in order.
func (f *fakeEmitter) byEvent(event string) []emission {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []emission
	for _, e := range f.out {
		if e.event == event {
			res = append(res, e)
		}
	}
	return res
}

func (f *fakeEmitter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []string
	for _, ev := range p.events {
		res = append(res, ev.Type)
	}
	return res
}

type fixture struct {
	db       *store.Memory
	presence *presence.Registry
	emitter  *fakeEmitter
	events   *recordingPublisher
	messages *MessageService
	conns    *PresenceService
	calls    *CallService
	rooms    *RoomRelay
}

// newFixture seeds alice, bob and carol, a direct chat "c1" between alice
// and bob, and a group "g1" with all three.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := store.NewMemory()
	for _, name := range []string{"alice", "bob", "carol"} {
		db.PutUser(models.User{ID: name, Username: name})
	}
	db.PutChat(models.Chat{ID: "c1", Participants: []string{"alice", "bob"}})
	db.PutChat(models.Chat{ID: "g1", Participants: []string{"alice", "bob", "carol"}})

	reg := presence.NewRegistry()
	t.Cleanup(reg.Close)

	em := newFakeEmitter()
	pub := &recordingPublisher{}
	logger := zerolog.Nop()

	return &fixture{
		db:       db,
		presence: reg,
		emitter:  em,
		events:   pub,
		messages: NewMessageService(MessageDeps{
			Users:    db,
			Chats:    db,
			Messages: db,
			Presence: reg,
			Emitter:  em,
			History:  cache.NewHistory(cache.NewMemoryStore(), time.Minute, logger),
			Events:   pub,
			Logger:   logger,
		}),
		conns: NewPresenceService(reg, db, em, logger),
		calls: NewCallService(db, reg, em, logger),
		rooms: NewRoomRelay(em, logger),
	}
}

func (f *fixture) online(t *testing.T, userID, connID string) {
	t.Helper()
	if err := f.presence.SetOnline(context.Background(), userID, connID); err != nil {
		t.Fatalf("SetOnline(%s): %v", userID, err)
	}
}
