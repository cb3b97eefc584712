package chat

import (
	"context"

	"go.uber.org/zap"

	"DevChat/logger"
)

// Broadcaster fans presence transitions out to the subject's friends. It runs
// strictly after the registry mutation for the same transition, so a send
// that observes "online" will find a route.
type Broadcaster struct {
	reg    *Registry
	dir    Directory
	mirror PresenceMirror // may be nil
}

func NewBroadcaster(reg *Registry, dir Directory, mirror PresenceMirror) *Broadcaster {
	return &Broadcaster{reg: reg, dir: dir, mirror: mirror}
}

// OnConnect pushes presence{online} to every friend with a live session.
func (b *Broadcaster) OnConnect(ctx context.Context, user UserRef) {
	if b.mirror != nil {
		if err := b.mirror.Online(ctx, user.UserID); err != nil {
			logger.Warn("presence mirror online failed", zap.String("user", user.UserID), zap.Error(err))
		}
	}
	b.fanout(ctx, user.UserID, NewPresenceEvent(user, StatusOnline))
}

// OnDisconnect pushes presence{offline} to live friends, then a partnerOffline
// notice to the same set. The notice goes to the entire live friend set, not
// only active chat partners; any friend could be mid-conversation with the
// departed user.
func (b *Broadcaster) OnDisconnect(ctx context.Context, user UserRef) {
	if b.mirror != nil {
		if err := b.mirror.Offline(ctx, user.UserID); err != nil {
			logger.Warn("presence mirror offline failed", zap.String("user", user.UserID), zap.Error(err))
		}
	}
	b.fanout(ctx, user.UserID, NewPresenceEvent(user, StatusOffline))
	b.fanout(ctx, user.UserID, NewPartnerOfflineEvent(user, user.Username+" went offline"))
}

func (b *Broadcaster) fanout(ctx context.Context, subjectID string, ev *Event) {
	friends, err := b.dir.FriendsOf(ctx, subjectID)
	if err != nil {
		logger.Error("friend lookup failed, presence not broadcast", zap.String("user", subjectID), zap.Error(err))
		return
	}
	for _, friendID := range b.reg.ListLive(friends) {
		t, ok := b.reg.Lookup(friendID)
		if !ok || !t.Alive() {
			continue
		}
		if err := t.Push(ev); err != nil {
			logger.Debug("presence push dropped", zap.String("to", friendID), zap.Error(err))
		}
	}
}
