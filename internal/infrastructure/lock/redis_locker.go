package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/treasury/backend/internal/domain/payment"
)

const (
	// lockTTL bounds how long a crashed holder can block a payment
	lockTTL = 30 * time.Second
	// retryInterval is the polling interval while waiting for a held lock
	retryInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only if the caller still owns it, so a
// holder whose TTL expired cannot release a lock re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements per-payment locking across process instances using
// SET NX with a TTL. Use it when multiple engine instances share a database.
type RedisLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(client *redis.Client, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		logger: logger,
	}
}

// Acquire polls SET NX until the lock is obtained, the timeout elapses, or
// ctx is cancelled. On timeout it returns a *payment.LockTimeoutError.
func (l *RedisLocker) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaseFunc(key, owner), nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, &payment.LockTimeoutError{Key: key, Timeout: timeout}
		}

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *RedisLocker) releaseFunc(key, owner string) func() {
	return func() {
		// Release uses a background context so a cancelled request still
		// frees the lock instead of leaving it to the TTL.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release payment lock, TTL will reclaim it",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}
