// Package redis provides Redis-based implementations of the store
// coordination interfaces.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bloodlink/internal/config"
)

// Lock key prefix and timing parameters.
const (
	prefixLock = "lock:alert:"

	// lockTTL bounds how long a crashed holder can wedge an alert.
	lockTTL = 10 * time.Second

	// retryInterval is the polling interval while waiting for a lock.
	retryInterval = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it is still held by this owner.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// AlertLocker implements store.AlertLocker using Redis SET NX with a TTL.
// It serializes response-collection mutations on a single alert across
// processes.
type AlertLocker struct {
	client *redis.Client
}

// NewAlertLocker creates a new Redis-backed alert locker.
func NewAlertLocker(cfg *config.RedisConfig) (*AlertLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &AlertLocker{client: client}, nil
}

// Lock acquires the distributed lock for an alert id, polling until it is
// held or the context is done. The returned function releases the lock if
// this process still owns it.
func (l *AlertLocker) Lock(ctx context.Context, alertID string) (func(), error) {
	key := prefixLock + alertID
	owner := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, owner, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire alert lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	release := func() {
		// Best effort: the TTL reclaims the lock if release fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, owner).Err()
	}
	return release, nil
}

// Close releases the underlying Redis client.
func (l *AlertLocker) Close() error {
	return l.client.Close()
}
