package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"DevChat/logger"
	mw "DevChat/middleware/security"
	"DevChat/module/chat/service"
	usersvc "DevChat/module/user/service"
	"DevChat/tools/errs"
)

// Handler serves message history. Writes go through the gateway only; this
// surface is read-only.
type Handler struct {
	store *service.Store
	users *usersvc.Service
}

func NewHandler(store *service.Store, users *usersvc.Service) *Handler {
	return &Handler{store: store, users: users}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	g := r.Group("/", auth)
	// Static route first so it wins over the parameter route.
	g.GET("/messages/unread", h.Unread)
	g.GET("/messages/:friendUserId", h.History)
}

type messageView struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// History returns the conversation with one friend, labeled me/them the way
// the CLI renders it.
func (h *Handler) History(c *gin.Context) {
	me := mw.UserID(c)
	friendID := c.Param("friendUserId")
	if _, err := h.users.GetByUserID(c.Request.Context(), friendID); err != nil {
		abortWith(c, err)
		return
	}
	msgs, err := h.store.History(c.Request.Context(), me, friendID)
	if err != nil {
		abortWith(c, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		from := "them"
		if m.FromUserID == me {
			from = "me"
		}
		out = append(out, messageView{From: from, Text: m.Text, CreatedAt: m.CreateTime.Format("2006-01-02T15:04:05.000Z07:00")})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// Unread returns everything addressed to the caller, with the sender spelled
// out.
func (h *Handler) Unread(c *gin.Context) {
	me := mw.UserID(c)
	msgs, err := h.store.InboxFor(c.Request.Context(), me)
	if err != nil {
		abortWith(c, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		from := m.FromUserID
		if username, found, err := h.users.Resolve(c.Request.Context(), m.FromUserID); err == nil && found {
			from = username + " (" + m.FromUserID + ")"
		}
		out = append(out, messageView{From: from, Text: m.Text, CreatedAt: m.CreateTime.Format("2006-01-02T15:04:05.000Z07:00")})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func abortWith(c *gin.Context, err error) {
	ce, ok := err.(*errs.CodeError)
	if !ok {
		logger.Error("request failed", zap.Error(err))
		ce = errs.ErrInternal
	}
	status := http.StatusBadRequest
	switch ce.Code {
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeInternal:
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, ce)
}
