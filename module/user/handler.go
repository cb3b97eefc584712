package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"DevChat/logger"
	mw "DevChat/middleware/security"
	"DevChat/module/user/model"
	"DevChat/module/user/service"
	"DevChat/service/chat"
	"DevChat/tools/errs"
	sec "DevChat/tools/security"
)

// Handler exposes the account and social-graph HTTP surface. It holds the
// gateway registry so accepted requests and chat invites can be pushed to a
// live session immediately.
type Handler struct {
	svc     *service.Service
	reg     *chat.Registry
	jwtOpts sec.Options
}

func NewHandler(svc *service.Service, reg *chat.Registry, jwtOpts sec.Options) *Handler {
	return &Handler{svc: svc, reg: reg, jwtOpts: jwtOpts}
}

// RegisterRoutes mounts the public and authenticated endpoints.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)

	g := r.Group("/", auth)
	g.GET("/me", h.Me)
	g.GET("/friends", h.Friends)
	g.GET("/friends/online", h.OnlineFriends)
	g.GET("/friend-requests", h.PendingRequests)
	g.POST("/friend-request", h.SendFriendRequest)
	g.POST("/friend-request/accept", h.AcceptFriendRequest)
	g.POST("/friend-request/reject", h.RejectFriendRequest)
	g.POST("/chat/request", h.ChatRequest)
}

type credentialsReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, errs.ErrBadRequest)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		abortWith(c, err)
		return
	}
	h.issueToken(c, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, errs.ErrBadRequest)
		return
	}
	u, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWith(c, err)
		return
	}
	h.issueToken(c, u)
}

func (h *Handler) issueToken(c *gin.Context, u *model.User) {
	token, _, err := sec.Generate(h.jwtOpts, u.UserID)
	if err != nil {
		abortWith(c, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u.Ref()})
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.GetByUserID(c.Request.Context(), mw.UserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	friends, err := h.svc.ResolveMany(c.Request.Context(), u.Friends)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Ref(), "email": u.Email, "friends": friends})
}

func (h *Handler) Friends(c *gin.Context) {
	refs, err := h.friendRefs(c)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": refs})
}

// OnlineFriends filters the friend list down to users the registry currently
// tracks.
func (h *Handler) OnlineFriends(c *gin.Context) {
	refs, err := h.friendRefs(c)
	if err != nil {
		abortWith(c, err)
		return
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.UserID
	}
	live := make(map[string]bool)
	for _, id := range h.reg.ListLive(ids) {
		live[id] = true
	}
	online := make([]model.Ref, 0, len(refs))
	for _, r := range refs {
		if live[r.UserID] {
			online = append(online, r)
		}
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

func (h *Handler) friendRefs(c *gin.Context) ([]model.Ref, error) {
	friends, err := h.svc.FriendsOf(c.Request.Context(), mw.UserID(c))
	if err != nil {
		return nil, err
	}
	return h.svc.ResolveMany(c.Request.Context(), friends)
}

func (h *Handler) PendingRequests(c *gin.Context) {
	reqs, err := h.svc.PendingRequestsFor(c.Request.Context(), mw.UserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	type reqView struct {
		ID   string    `json:"id"`
		From model.Ref `json:"from"`
	}
	out := make([]reqView, 0, len(reqs))
	for _, fr := range reqs {
		username, found, err := h.svc.Resolve(c.Request.Context(), fr.FromUserID)
		if err != nil || !found {
			continue
		}
		out = append(out, reqView{ID: fr.ID.Hex(), From: model.Ref{UserID: fr.FromUserID, Username: username}})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

type targetReq struct {
	TargetUserID string `json:"targetUserId"`
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetUserID == "" {
		abortWith(c, errs.ErrBadRequest)
		return
	}
	me, err := h.svc.GetByUserID(c.Request.Context(), mw.UserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	fr, target, err := h.svc.CreateFriendRequest(c.Request.Context(), me.UserID, req.TargetUserID)
	if err != nil {
		abortWith(c, err)
		return
	}
	h.pushTo(target.UserID, chat.NewFriendRequestEvent(chatRef(me.Ref()), fr.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	var req struct {
		RequestID string `json:"requestId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RequestID == "" {
		abortWith(c, errs.ErrBadRequest)
		return
	}
	me, err := h.svc.GetByUserID(c.Request.Context(), mw.UserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	requester, err := h.svc.AcceptFriendRequest(c.Request.Context(), req.RequestID, me.UserID)
	if err != nil {
		abortWith(c, err)
		return
	}
	h.pushTo(requester.UserID, chat.NewFriendRequestAcceptedEvent(chatRef(me.Ref())))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) RejectFriendRequest(c *gin.Context) {
	var req struct {
		RequestID string `json:"requestId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RequestID == "" {
		abortWith(c, errs.ErrBadRequest)
		return
	}
	if err := h.svc.RejectFriendRequest(c.Request.Context(), req.RequestID, mw.UserID(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChatRequest pings a live target that the caller wants to chat; `notified`
// tells the caller whether anyone was there to see it.
func (h *Handler) ChatRequest(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetUserID == "" {
		abortWith(c, errs.ErrBadRequest)
		return
	}
	me, err := h.svc.GetByUserID(c.Request.Context(), mw.UserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	if _, err := h.svc.GetByUserID(c.Request.Context(), req.TargetUserID); err != nil {
		abortWith(c, err)
		return
	}
	notified := h.pushTo(req.TargetUserID, chat.NewChatRequestEvent(chatRef(me.Ref())))
	c.JSON(http.StatusOK, gin.H{"success": true, "notified": notified})
}

func (h *Handler) pushTo(userID string, ev *chat.Event) bool {
	t, ok := h.reg.Lookup(userID)
	if !ok || !t.Alive() {
		return false
	}
	if err := t.Push(ev); err != nil {
		logger.Debug("http push dropped", zap.String("to", userID), zap.Error(err))
		return false
	}
	return true
}

func chatRef(r model.Ref) chat.UserRef {
	return chat.UserRef{UserID: r.UserID, Username: r.Username}
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
	case errs.CodeNotAuthorized:
		status = http.StatusForbidden
	case errs.CodeInternal:
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, ce)
}
