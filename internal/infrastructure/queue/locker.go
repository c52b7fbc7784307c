package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "beanbound:lease:"

// RedisLocker implements a best-effort lease via SET NX with a TTL, enough to
// keep multiple replicas from sweeping simultaneously.
type RedisLocker struct {
	client *redis.Client
	// token identifies this holder so Release never drops another
	// replica's lease.
	token string
}

// NewRedisLocker creates a new redis-backed locker
func NewRedisLocker(client *redis.Client, token string) *RedisLocker {
	return &RedisLocker{client: client, token: token}
}

// Acquire takes the named lease for ttl. Returns false when held elsewhere.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, leaseKeyPrefix+name, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	return ok, nil
}

// Release drops the lease if this instance still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Release(ctx context.Context, name string) error {
	if err := releaseScript.Run(ctx, l.client, []string{leaseKeyPrefix + name}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}
