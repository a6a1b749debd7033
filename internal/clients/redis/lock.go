package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a best-effort leader lock with a TTL. It is not a fencing lock.
type Lock struct {
	rdb   goredis.UniversalClient
	key   string
	ttl   time.Duration
	token string
}

func NewLock(rdb goredis.UniversalClient, key string, ttl time.Duration) *Lock {
	return &Lock{rdb: rdb, key: key, ttl: ttl, token: uuid.NewString()}
}

// TryAcquire reports whether this process now holds the lock.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("redis lock not configured")
	}
	ok, err := l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock %s: %w", l.key, err)
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
