package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"DevChat/global"
)

// presence key: im:presence:<user>
// The value is a constant marker; the TTL bounds how long a crashed gateway
// can leave a user looking online.
func presenceKey(user string) string { return "im:presence:" + user }

const presenceMarker = "1"

// PresenceMirrorRedis replicates connect/disconnect transitions into redis
// with a TTL. The gateway refreshes keys for connected users periodically; a
// missing refresh lets stale entries age out on their own.
type PresenceMirrorRedis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceMirror(cfg global.RedisConfig, ttl time.Duration) (*PresenceMirrorRedis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceMirrorRedis{rdb: rdb, ttl: ttl}, nil
}

// Online marks the user online and starts the TTL clock.
func (m *PresenceMirrorRedis) Online(ctx context.Context, userID string) error {
	return m.rdb.Set(ctx, presenceKey(userID), presenceMarker, m.ttl).Err()
}

// Offline deletes the key immediately.
func (m *PresenceMirrorRedis) Offline(ctx context.Context, userID string) error {
	return m.rdb.Del(ctx, presenceKey(userID)).Err()
}

// Refresh renews the TTL for every still-connected user.
func (m *PresenceMirrorRedis) Refresh(ctx context.Context, userIDs []string) error {
	var lastErr error
	for _, id := range userIDs {
		if err := m.rdb.Expire(ctx, presenceKey(id), m.ttl).Err(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close releases the underlying connection pool.
func (m *PresenceMirrorRedis) Close() error { return m.rdb.Close() }
