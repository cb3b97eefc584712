package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"DevChat/logger"
	"DevChat/tools/errs"
)

// Router accepts an outgoing message, persists it, then attempts live
// delivery. Delivery is best-effort: the durable write always happens first,
// and a missing recipient session produces an explicit partnerOffline notice
// to the sender instead of silent loss.
type Router struct {
	reg   *Registry
	dir   Directory
	store MessageStore
	clock func() time.Time
}

func NewRouter(reg *Registry, dir Directory, store MessageStore) *Router {
	return &Router{reg: reg, dir: dir, store: store, clock: time.Now}
}

type SendResult struct {
	Delivered bool
}

// Send routes one message from sender to toUserID.
//
// An unknown recipient is dropped silently, mirroring the directory's
// "recipient not found" behavior. Persistence failure aborts the whole
// operation before any delivery attempt. Otherwise the message is pushed to
// the recipient's live session when one exists and passes the liveness
// re-check; when none does, the still-live sender gets a partnerOffline
// notice.
func (r *Router) Send(ctx context.Context, sender UserRef, toUserID, text string) (SendResult, error) {
	toUsername, found, err := r.dir.Resolve(ctx, toUserID)
	if err != nil {
		return SendResult{}, errs.ErrInternal.WithDetail(err.Error())
	}
	if !found {
		logger.Debug("message to unknown recipient dropped", zap.String("to", toUserID))
		return SendResult{Delivered: false}, nil
	}

	createdAt := r.clock()
	if err := r.store.Append(ctx, sender.UserID, toUserID, text, createdAt); err != nil {
		return SendResult{}, errs.ErrPersistenceFailed.WithDetail(err.Error())
	}

	recipient := UserRef{UserID: toUserID, Username: toUsername}

	t, ok := r.reg.Lookup(toUserID)
	if !ok {
		r.notifyPartnerOffline(sender, recipient)
		return SendResult{Delivered: false}, nil
	}
	if !t.Alive() {
		// Stale registry entry: the socket died without an eviction. Heal the
		// registry and treat it as plain offline.
		r.reg.Evict(toUserID, t)
		logger.Info("stale session evicted", zap.String("user", toUserID), zap.String("conn", t.ConnID()))
		r.notifyPartnerOffline(sender, recipient)
		return SendResult{Delivered: false}, nil
	}

	if err := t.Push(NewMessageEvent(sender, text, createdAt)); err != nil {
		// Present but lagging (or torn down mid-push). The message is already
		// durable; this is not "partner offline", so no notice.
		logger.Warn("live push failed after persist", zap.String("to", toUserID), zap.Error(err))
		return SendResult{Delivered: false}, nil
	}
	return SendResult{Delivered: true}, nil
}

// notifyPartnerOffline tells the sender the recipient is away, if the sender
// itself still holds a live session. A sender that disconnected mid-send gets
// nothing.
func (r *Router) notifyPartnerOffline(sender, recipient UserRef) {
	t, ok := r.reg.Lookup(sender.UserID)
	if !ok || !t.Alive() {
		return
	}
	msg := recipient.Username + " is offline; your message was stored and will be delivered when they return"
	if err := t.Push(NewPartnerOfflineEvent(recipient, msg)); err != nil {
		logger.Debug("partnerOffline notice dropped", zap.String("to", sender.UserID), zap.Error(err))
	}
}
