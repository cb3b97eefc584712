package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"DevChat/logger"
	"DevChat/tools/decode"
	"DevChat/tools/errs"
	"DevChat/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the session to completion:
// auth gate -> admit -> presence online -> read loop -> evict -> presence
// offline. One goroutine reads, the client's write pump writes.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	client := NewClient(ws, s.sendQueueSize)
	defer client.Close()

	user, err := s.authenticate(ws)
	if err != nil {
		// Terminated without ever entering Connected; nothing was admitted,
		// so there is nothing to evict or broadcast. The pump is not running
		// yet, so the rejection frame goes out synchronously before the close.
		logger.Info("connection rejected", zap.String("conn", client.ConnID()), zap.Error(err))
		if data, merr := NewErrorEvent(errs.Code(err), "authentication failed").Marshal(); merr == nil {
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.TextMessage, data)
		}
		return
	}

	ctx := context.Background()

	go client.WritePump()
	client.MarkConnected()
	s.reg.Admit(user.UserID, client)
	_ = client.Push(NewAuthAckEvent(user))
	s.bcast.OnConnect(ctx, user)
	logger.Info("session admitted", zap.String("user", user.UserID), zap.String("conn", client.ConnID()))

	s.readLoop(ctx, user, client, ws)

	// Evict only our own session; if a newer connection superseded this one,
	// the eviction no-ops and no offline presence is broadcast.
	if evicted := s.reg.Evict(user.UserID, client); evicted != nil {
		s.bcast.OnDisconnect(ctx, user)
		logger.Info("session evicted", zap.String("user", user.UserID), zap.String("conn", client.ConnID()))
	} else {
		logger.Debug("superseded session closed", zap.String("user", user.UserID), zap.String("conn", client.ConnID()))
	}
}

// authenticate enforces the one-shot gate: the first frame must be a valid
// auth event, delivered within the auth window, naming a user the directory
// knows. Nothing touches the registry before this returns.
func (s *Server) authenticate(ws *websocket.Conn) (UserRef, error) {
	_ = ws.SetReadDeadline(time.Now().Add(s.authWindow))

	_, raw, err := ws.ReadMessage()
	if err != nil {
		return UserRef{}, errs.ErrAuthFailed.WithDetail("no credential before deadline")
	}
	env, err := ParseEnvelope(raw)
	if err != nil || env.Type != EvtAuth {
		return UserRef{}, errs.ErrAuthFailed.WithDetail("first frame must be auth")
	}
	p, err := decode.DecodeRaw[AuthPayload](env.Data)
	if err != nil || p.Token == "" {
		return UserRef{}, errs.ErrAuthFailed.WithDetail("missing token")
	}
	userID, err := security.Verify(s.jwtOpts, p.Token)
	if err != nil {
		return UserRef{}, err
	}
	username, found, err := s.dir.Resolve(context.Background(), userID)
	if err != nil {
		return UserRef{}, errs.ErrInternal.WithDetail(err.Error())
	}
	if !found {
		return UserRef{}, errs.ErrAuthFailed.WithDetail("unknown user")
	}
	return UserRef{UserID: userID, Username: username}, nil
}

func (s *Server) readLoop(ctx context.Context, user UserRef, client *Client, ws *websocket.Conn) {
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("peer closed", zap.String("user", user.UserID))
			} else {
				logger.Debug("read error", zap.String("user", user.UserID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		env, perr := ParseEnvelope(raw)
		if perr != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame from %s: %v sample=%q", user.UserID, perr, sample)
			continue
		}
		s.disp.Dispatch(ctx, user, env, client)
	}
}
