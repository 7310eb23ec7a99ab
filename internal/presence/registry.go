package presence

import (
	"context"
	"sort"
	"sync"
)

// Registry is an in-memory presence store. All state is owned by a single
// goroutine; every call is shipped to it over a channel and runs to
// completion before the next one starts.
type Registry struct {
	ops  chan func()
	quit chan struct{}
	once sync.Once

	// userID -> connID
	users map[string]string
	// connID -> userID
	conns map[string]string
}

var _ Store = (*Registry)(nil)

// NewRegistry starts the owner goroutine. Call Close to stop it.
func NewRegistry() *Registry {
	r := &Registry{
		ops:   make(chan func()),
		quit:  make(chan struct{}),
		users: make(map[string]string),
		conns: make(map[string]string),
	}
	go r.loop()
	return r
}

func (r *Registry) loop() {
	for {
		select {
		case op := <-r.ops:
			op()
		case <-r.quit:
			return
		}
	}
}

// do runs op on the owner goroutine and waits for it. After Close it
// returns without running op.
func (r *Registry) do(op func()) bool {
	done := make(chan struct{})
	select {
	case r.ops <- func() { op(); close(done) }:
		<-done
		return true
	case <-r.quit:
		return false
	}
}

// Close stops the owner goroutine.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.quit) })
}

// SetOnline binds userID to connID, replacing any earlier binding of either side.
func (r *Registry) SetOnline(_ context.Context, userID, connID string) error {
	r.do(func() {
		if old, ok := r.users[userID]; ok {
			delete(r.conns, old)
		}
		if prev, ok := r.conns[connID]; ok && prev != userID {
			delete(r.users, prev)
		}
		r.users[userID] = connID
		r.conns[connID] = userID
	})
	return nil
}

// RemoveByConnection drops the entry whose handle is connID.
func (r *Registry) RemoveByConnection(_ context.Context, connID string) (string, bool, error) {
	var (
		userID string
		found  bool
	)
	r.do(func() {
		userID, found = r.conns[connID]
		if !found {
			return
		}
		delete(r.conns, connID)
		if r.users[userID] == connID {
			delete(r.users, userID)
		}
	})
	return userID, found, nil
}

// Lookup returns the active handle of userID.
func (r *Registry) Lookup(_ context.Context, userID string) (string, bool, error) {
	var (
		connID string
		found  bool
	)
	r.do(func() {
		connID, found = r.users[userID]
	})
	return connID, found, nil
}

// OnlineUsers returns the online user ids in ascending order.
func (r *Registry) OnlineUsers(_ context.Context) ([]string, error) {
	var ids []string
	r.do(func() {
		ids = make([]string, 0, len(r.users))
		for id := range r.users {
			ids = append(ids, id)
		}
	})
	sort.Strings(ids)
	return ids, nil
}
