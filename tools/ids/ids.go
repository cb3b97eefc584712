package ids

import (
	"crypto/rand"
	"strconv"
	"sync"
	"time"
)

// User IDs are short, upper-case and unambiguous so people can read them to
// each other (no 0/O or 1/I).
const userIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const userIDLen = 8

// NewUserID returns a random 8-character user identifier.
func NewUserID() string {
	buf := make([]byte, userIDLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to a
		// timestamp so we at least stay unique-ish instead of panicking.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	for i, b := range buf {
		buf[i] = userIDAlphabet[int(b)%len(userIDAlphabet)]
	}
	return string(buf)
}

type connGen struct {
	mu     sync.Mutex
	lastMS int64
	seq    int64
}

var defaultConnGen connGen

// NewConnID returns a process-unique connection identifier, ordered by
// creation time.
func NewConnID() string {
	g := &defaultConnGen
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now == g.lastMS {
		g.seq++
	} else {
		g.lastMS = now
		g.seq = 0
	}
	return "c-" + strconv.FormatInt(now, 36) + "-" + strconv.FormatInt(g.seq, 36)
}
