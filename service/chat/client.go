package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"DevChat/logger"
	"DevChat/tools/ids"
)

// Session lifecycle states. Terminated is absorbing.
const (
	StateConnecting int32 = iota
	StateConnected
	StateTerminated
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrSlowClient   = errors.New("send queue full")
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 25 * time.Second
	pongWait   = 75 * time.Second
)

// Client wraps one websocket connection with a single-writer pump.
// gorilla/websocket does not allow concurrent writes, so every push goes
// through the send channel and exactly one goroutine touches the socket.
type Client struct {
	connID string
	ws     *websocket.Conn
	send   chan []byte

	state     atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
}

func NewClient(ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	c := &Client{
		connID: ids.NewConnID(),
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
	c.state.Store(StateConnecting)
	return c
}

func (c *Client) ConnID() string { return c.connID }

// Push serializes ev and enqueues it. Never blocks: a full queue means the
// client is lagging and the event is dropped with an error, which is not the
// same condition as the client being gone.
func (c *Client) Push(ev *Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.closed:
		return ErrClientClosed
	default:
		return ErrSlowClient
	}
}

// Alive reports whether the underlying connection is still believed healthy.
// Registry entries can outlive the socket; delivery re-checks here.
func (c *Client) Alive() bool {
	select {
	case <-c.closed:
		return false
	default:
		return c.state.Load() != StateTerminated
	}
}

// Close is idempotent and marks the session Terminated.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(StateTerminated)
		close(c.closed)
		_ = c.ws.Close()
	})
}

// MarkConnected flips Connecting -> Connected after the auth gate passes.
func (c *Client) MarkConnected() {
	c.state.CompareAndSwap(StateConnecting, StateConnected)
}

func (c *Client) State() int32 { return c.state.Load() }

// WritePump is the single writer goroutine. It drains the send queue and
// keeps the connection alive with pings; any write error terminates the
// client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("write failed, closing client")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
