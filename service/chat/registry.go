package chat

import (
	"sync"
	"time"
)

// Transport is the write side of one live duplex connection. The registry
// stores transports and never looks inside them; Alive is the liveness
// re-check used at the moment of delivery, because a socket can die without a
// synchronous eviction.
type Transport interface {
	ConnID() string
	Push(ev *Event) error
	Alive() bool
	Close()
}

// Session is one authenticated live connection. Owned exclusively by the
// Registry; callers get the Transport back from Lookup and must not hold it
// across calls.
type Session struct {
	UserID      string
	Transport   Transport
	ConnectedAt time.Time
}

// Registry maps userID -> at most one live Session. It is the single shared
// mutable structure in the gateway; every mutation happens under the write
// lock, reads share the read lock.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Session
	clock  func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Session),
		clock:  time.Now,
	}
}

// Admit installs a session for userID, replacing any prior one
// (last-connect-wins). The superseded transport is not force-closed; its own
// teardown will run and its eviction will no-op. Admission is unconditional,
// the caller has already authenticated the connection.
func (r *Registry) Admit(userID string, t Transport) *Session {
	s := &Session{UserID: userID, Transport: t, ConnectedAt: r.clock()}
	r.mu.Lock()
	r.byUser[userID] = s
	r.mu.Unlock()
	return s
}

// Evict removes the session for userID only when it still belongs to the
// caller's transport. A disconnect of a superseded connection must not tear
// down the session that replaced it. Returns the removed session, or nil
// when nothing was evicted.
func (r *Registry) Evict(userID string, t Transport) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	if t != nil && s.Transport.ConnID() != t.ConnID() {
		return nil
	}
	delete(r.byUser, userID)
	return s
}

// Lookup returns the believed-live transport for userID. No liveness
// guarantee; callers that deliver through it must re-check Alive.
func (r *Registry) Lookup(userID string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	return s.Transport, true
}

// ListLive filters userIDs down to those currently registered.
func (r *Registry) ListLive(userIDs []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := r.byUser[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// LiveUsers snapshots every user currently holding a session; used by the
// presence mirror refresher.
func (r *Registry) LiveUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		out = append(out, id)
	}
	return out
}

// Len reports how many users hold a live session.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
