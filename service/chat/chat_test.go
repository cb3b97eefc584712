package chat

import (
	"context"
	"sync"
	"time"
)

// Shared fakes for the gateway tests. Everything is built fresh per test
// case; nothing here touches the network.

type fakeDirectory struct {
	users   map[string]string   // userID -> username
	friends map[string][]string // userID -> friend IDs
	err     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]string{}, friends: map[string][]string{}}
}

func (d *fakeDirectory) addUser(id, name string, friends ...string) {
	d.users[id] = name
	d.friends[id] = friends
}

func (d *fakeDirectory) Resolve(_ context.Context, userID string) (string, bool, error) {
	if d.err != nil {
		return "", false, d.err
	}
	name, ok := d.users[userID]
	return name, ok, nil
}

func (d *fakeDirectory) FriendsOf(_ context.Context, userID string) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.friends[userID], nil
}

type appendRec struct {
	from, to, text string
	createdAt      time.Time
	seq            int
}

type fakeStore struct {
	mu      sync.Mutex
	appends []appendRec
	err     error
	seq     *seqClock
}

func (s *fakeStore) Append(_ context.Context, from, to, text string, createdAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := appendRec{from: from, to: to, text: text, createdAt: createdAt}
	if s.seq != nil {
		rec.seq = s.seq.next()
	}
	s.appends = append(s.appends, rec)
	return nil
}

// seqClock hands out a global ordering so tests can assert persist-before-push.
type seqClock struct {
	mu sync.Mutex
	n  int
}

func (c *seqClock) next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

type pushedEvent struct {
	ev  *Event
	seq int
}

type fakeTransport struct {
	mu      sync.Mutex
	connID  string
	alive   bool
	pushErr error
	pushed  []pushedEvent
	seq     *seqClock
}

func newFakeTransport(connID string) *fakeTransport {
	return &fakeTransport{connID: connID, alive: true}
}

func (t *fakeTransport) ConnID() string { return t.connID }

func (t *fakeTransport) Push(ev *Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.alive {
		return ErrClientClosed
	}
	if t.pushErr != nil {
		return t.pushErr
	}
	pe := pushedEvent{ev: ev}
	if t.seq != nil {
		pe.seq = t.seq.next()
	}
	t.pushed = append(t.pushed, pe)
	return nil
}

func (t *fakeTransport) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive = false
}

func (t *fakeTransport) events() []*Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Event, len(t.pushed))
	for i, p := range t.pushed {
		out[i] = p.ev
	}
	return out
}

func (t *fakeTransport) eventsOfType(typ EventType) []*Event {
	var out []*Event
	for _, ev := range t.events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type mirrorCall struct {
	op     string
	userID string
}

type fakeMirror struct {
	mu    sync.Mutex
	calls []mirrorCall
	err   error
}

func (m *fakeMirror) Online(_ context.Context, userID string) error {
	m.record("online", userID)
	return m.err
}

func (m *fakeMirror) Offline(_ context.Context, userID string) error {
	m.record("offline", userID)
	return m.err
}

func (m *fakeMirror) Refresh(_ context.Context, userIDs []string) error {
	for _, id := range userIDs {
		m.record("refresh", id)
	}
	return m.err
}

func (m *fakeMirror) record(op, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mirrorCall{op: op, userID: userID})
}
