package chat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DevChat/tools/errs"
	"DevChat/tools/security"
)

var handshakeJWTOpts = security.Options{Secret: []byte("handshake-secret"), Alg: "HS256", TTL: time.Hour}

func wsTestServer(t *testing.T, dir *fakeDirectory, authWindow time.Duration) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := NewServer(ServerConfig{JWTOpts: handshakeJWTOpts, AuthWindow: authWindow},
		NewRegistry(), dir, &fakeStore{}, nil)
	r := gin.New()
	r.GET("/ws", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := security.Generate(handshakeJWTOpts, userID)
	require.NoError(t, err)
	return token
}

func authFrame(token string) map[string]any {
	return map[string]any{"type": "auth", "data": map[string]string{"token": token}}
}

func readFrame(t *testing.T, ws *websocket.Conn, timeout time.Duration) *Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	e, err := ParseEnvelope(raw)
	require.NoError(t, err)
	return e
}

func assertErrorFrame(t *testing.T, e *Envelope, code int) {
	t.Helper()
	require.Equal(t, EvtError, e.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(e.Data, &p))
	assert.Equal(t, code, p.Code)
}

func assertSocketClosed(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestHandshakeAdmitsValidToken(t *testing.T) {
	dir := newFakeDirectory()
	dir.addUser("A", "alice")
	srv, url := wsTestServer(t, dir, time.Second)

	ws := dialWS(t, url)
	require.NoError(t, ws.WriteJSON(authFrame(tokenFor(t, "A"))))

	e := readFrame(t, ws, 2*time.Second)
	require.Equal(t, EvtAuthAck, e.Type)
	var ack AuthAckPayload
	require.NoError(t, json.Unmarshal(e.Data, &ack))
	assert.Equal(t, "A", ack.UserID)
	assert.Equal(t, "alice", ack.Username)

	// The ack is pushed after admission, so by now the session is registered.
	assert.Equal(t, 1, srv.Registry().Len())
}

func TestHandshakeRejectsNonAuthFirstFrame(t *testing.T) {
	dir := newFakeDirectory()
	dir.addUser("A", "alice")
	srv, url := wsTestServer(t, dir, time.Second)

	ws := dialWS(t, url)
	require.NoError(t, ws.WriteJSON(map[string]any{"type": "typing", "data": map[string]string{"toUserId": "A"}}))

	assertErrorFrame(t, readFrame(t, ws, 2*time.Second), errs.CodeAuthFailed)
	assertSocketClosed(t, ws)
	assert.Equal(t, 0, srv.Registry().Len())
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	dir := newFakeDirectory()
	dir.addUser("A", "alice")
	srv, url := wsTestServer(t, dir, time.Second)

	ws := dialWS(t, url)
	require.NoError(t, ws.WriteJSON(authFrame("not.a.token")))

	assertErrorFrame(t, readFrame(t, ws, 2*time.Second), errs.CodeAuthFailed)
	assertSocketClosed(t, ws)
	assert.Equal(t, 0, srv.Registry().Len())
}

func TestHandshakeRejectsUnknownUser(t *testing.T) {
	// A token that verifies but names nobody the directory knows.
	srv, url := wsTestServer(t, newFakeDirectory(), time.Second)

	ws := dialWS(t, url)
	require.NoError(t, ws.WriteJSON(authFrame(tokenFor(t, "GHOST"))))

	assertErrorFrame(t, readFrame(t, ws, 2*time.Second), errs.CodeAuthFailed)
	assertSocketClosed(t, ws)
	assert.Equal(t, 0, srv.Registry().Len())
}

func TestHandshakeWindowBoundsSilentClient(t *testing.T) {
	srv, url := wsTestServer(t, newFakeDirectory(), 150*time.Millisecond)

	ws := dialWS(t, url)
	// Say nothing; the gate must give up once the window lapses.
	assertErrorFrame(t, readFrame(t, ws, 2*time.Second), errs.CodeAuthFailed)
	assertSocketClosed(t, ws)
	assert.Equal(t, 0, srv.Registry().Len())
}

func TestSupersededTeardownKeepsNewSession(t *testing.T) {
	dir := newFakeDirectory()
	dir.addUser("A", "alice", "B")
	dir.addUser("B", "bob", "A")
	srv, url := wsTestServer(t, dir, time.Second)

	observer := dialWS(t, url)
	require.NoError(t, observer.WriteJSON(authFrame(tokenFor(t, "B"))))
	require.Equal(t, EvtAuthAck, readFrame(t, observer, 2*time.Second).Type)

	first := dialWS(t, url)
	require.NoError(t, first.WriteJSON(authFrame(tokenFor(t, "A"))))
	require.Equal(t, EvtAuthAck, readFrame(t, first, 2*time.Second).Type)
	require.Equal(t, EvtPresence, readFrame(t, observer, 2*time.Second).Type)

	second := dialWS(t, url)
	require.NoError(t, second.WriteJSON(authFrame(tokenFor(t, "A"))))
	require.Equal(t, EvtAuthAck, readFrame(t, second, 2*time.Second).Type)
	require.Equal(t, EvtPresence, readFrame(t, observer, 2*time.Second).Type)

	// The replaced connection's teardown must not tear down the session that
	// superseded it, and must not broadcast an offline for a user who is
	// still here.
	require.NoError(t, first.Close())
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, srv.Registry().Len())

	// Had a spurious offline been broadcast, the observer would read a
	// presence frame here instead of the message.
	require.NoError(t, second.WriteJSON(map[string]any{
		"type": "sendMessage",
		"data": map[string]any{"toUserId": "B", "text": "still here"},
	}))
	e := readFrame(t, observer, 2*time.Second)
	require.Equal(t, EvtMessage, e.Type)
	var msg MessagePayload
	require.NoError(t, json.Unmarshal(e.Data, &msg))
	assert.Equal(t, "still here", msg.Text)

	// A genuine disconnect of the live session does broadcast.
	require.NoError(t, second.Close())
	e = readFrame(t, observer, 2*time.Second)
	require.Equal(t, EvtPresence, e.Type)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(e.Data, &p))
	assert.Equal(t, "A", p.UserID)
	assert.Equal(t, StatusOffline, p.Status)
	require.Equal(t, EvtPartnerOffline, readFrame(t, observer, 2*time.Second).Type)
}
