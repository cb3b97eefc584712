package chat

import (
	"context"
	"time"
)

// Directory resolves user identities and the friend graph. Backed by the user
// module in production, by fakes in tests. Read-only from the gateway's side.
type Directory interface {
	Resolve(ctx context.Context, userID string) (username string, found bool, err error)
	FriendsOf(ctx context.Context, userID string) ([]string, error)
}

// MessageStore is append-only durable persistence. The gateway writes every
// outgoing message here and never reads it back.
type MessageStore interface {
	Append(ctx context.Context, fromUserID, toUserID, text string, createdAt time.Time) error
}

// PresenceMirror replicates online/offline transitions to an external store
// (redis) with a TTL. Best-effort: mirror failures never affect routing, the
// in-process Registry stays the source of truth.
type PresenceMirror interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userIDs []string) error
}
